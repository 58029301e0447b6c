package auth

// Known OAuth scopes used by the service.
const (
	ScopeChallengesWrite = "challenges:write"
	ScopeChallengesRead  = "challenges:read"
	ScopeCheckInsWrite   = "checkins:write"
	ScopeCheckInsRead    = "checkins:read"
)
