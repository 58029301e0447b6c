// Package api exposes HTTP handlers for the habit-tracking service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/hundreddays/internal/auth"
	"example.com/hundreddays/internal/domain"
	"example.com/hundreddays/internal/persistence"
	"example.com/hundreddays/internal/quotes"
)

// PhotoSigner issues presigned upload URLs for check-in photos.
type PhotoSigner interface {
	CheckInPhotoKey(tenantID, challengeID string, day int) string
	UploadURL(ctx context.Context, key, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	quotes  *quotes.Catalog
	photos  PhotoSigner
}

// NewHandler builds a Handler. photos may be nil when photo storage is not
// configured.
func NewHandler(service *domain.Service, catalog *quotes.Catalog, photos PhotoSigner) *Handler {
	return &Handler{service: service, quotes: catalog, photos: photos}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/challenges", h.challenges)
	mux.HandleFunc("/v1/challenges/", h.challengeSubtree)
	mux.HandleFunc("/v1/quotes/daily", h.dailyQuote)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) challenges(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createChallenge(w, r)
	case http.MethodGet:
		h.listChallenges(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// challengeSubtree routes /v1/challenges/{id}[/...] paths.
func (h *Handler) challengeSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/challenges/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing challenge id")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.getChallenge(w, r, id)
	case len(parts) == 2 && parts[1] == "abandon":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.abandonChallenge(w, r, id)
	case len(parts) == 2 && parts[1] == "checkins":
		switch r.Method {
		case http.MethodPost:
			h.recordCheckIn(w, r, id)
		case http.MethodGet:
			h.listCheckIns(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
	case len(parts) == 2 && parts[1] == "progress":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.challengeProgress(w, r, id)
	case len(parts) == 4 && parts[1] == "checkins" && parts[3] == "photo-url":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.photoUploadURL(w, r, id, parts[2])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) createChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	if !claims.HasScope(auth.ScopeChallengesWrite) {
		writeError(w, http.StatusForbidden, "forbidden", "scope challenges:write required")
		return
	}

	var req CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	challenge, err := h.service.CreateChallenge(r.Context(), domain.CreateChallengeInput{
		TenantID:     claims.TenantID,
		UserID:       req.UserID,
		Title:        req.Title,
		Description:  req.Description,
		StartDate:    req.StartDate,
		DurationDays: req.DurationDays,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toChallengeView(*challenge))
}

func (h *Handler) getChallenge(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challenge, err := h.service.GetChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeView(*challenge))
}

func (h *Handler) listChallenges(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesRead, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "missing user_id parameter")
		return
	}

	limit := parseLimit(r, 20)
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	challenges, next, err := h.service.ListChallengesByUser(r.Context(), claims.TenantID, userID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]ChallengeView, 0, len(challenges))
	for _, challenge := range challenges {
		items = append(items, toChallengeView(challenge))
	}
	writeJSON(w, http.StatusOK, ListChallengesResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) abandonChallenge(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeChallengesWrite)
	if !ok {
		return
	}

	challenge, err := h.service.AbandonChallenge(r.Context(), claims.TenantID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toChallengeView(*challenge))
}

func (h *Handler) recordCheckIn(w http.ResponseWriter, r *http.Request, challengeID string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckInsWrite)
	if !ok {
		return
	}

	var req RecordCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	checkIn, outcome, replay, err := h.service.RecordCheckIn(r.Context(), domain.RecordCheckInInput{
		TenantID:       claims.TenantID,
		ChallengeID:    challengeID,
		Date:           req.Date,
		Note:           req.Note,
		PhotoKey:       req.PhotoKey,
		Source:         req.Source,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := RecordCheckInResponse{
		CheckIn: toCheckInView(*checkIn),
		Replay:  replay,
	}
	if outcome != nil {
		resp.CheckedDays = outcome.CheckedDays
		resp.ChallengeCompleted = outcome.ChallengeCompleted
		if outcome.Milestone != nil {
			resp.Milestone = toMilestoneView(*outcome.Milestone)
		}
	}

	status := http.StatusAccepted
	if replay {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (h *Handler) listCheckIns(w http.ResponseWriter, r *http.Request, challengeID string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckInsRead, auth.ScopeCheckInsWrite)
	if !ok {
		return
	}

	limit := parseLimit(r, 20)
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	checkIns, next, err := h.service.ListCheckIns(r.Context(), claims.TenantID, challengeID, cursor, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]CheckInView, 0, len(checkIns))
	for _, checkIn := range checkIns {
		items = append(items, toCheckInView(checkIn))
	}
	writeJSON(w, http.StatusOK, ListCheckInsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) challengeProgress(w http.ResponseWriter, r *http.Request, challengeID string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckInsRead, auth.ScopeCheckInsWrite)
	if !ok {
		return
	}

	timelineLimit := 10
	if raw := r.URL.Query().Get("timeline_limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			if parsed > 50 {
				parsed = 50
			}
			timelineLimit = parsed
		}
	}

	progress, err := h.service.GetProgress(r.Context(), claims.TenantID, challengeID, timelineLimit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	earned := make([]MilestoneView, 0, len(progress.Earned))
	for _, m := range progress.Earned {
		earned = append(earned, *toMilestoneView(m))
	}
	timeline := make([]CheckInView, 0, len(progress.Timeline))
	for _, checkIn := range progress.Timeline {
		timeline = append(timeline, toCheckInView(checkIn))
	}

	resp := ProgressResponse{
		Challenge: toChallengeView(progress.Challenge),
		Summary: StreakSummaryView{
			CurrentStreak:     progress.Summary.CurrentStreak,
			LongestStreak:     progress.Summary.LongestStreak,
			CheckedDays:       progress.Summary.CheckedDays,
			CompletionPercent: progress.Summary.CompletionPercent,
			LastCheckInDate:   progress.Summary.LastCheckInDate,
		},
		EarnedMilestones: earned,
		NextMilestone:    toMilestoneViewPtr(progress.Next),
		Timeline:         timeline,
		TimelineLimit:    timelineLimit,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) photoUploadURL(w http.ResponseWriter, r *http.Request, challengeID, dayRaw string) {
	claims, ok := requireScope(w, r, auth.ScopeCheckInsWrite)
	if !ok {
		return
	}
	if h.photos == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", "photo storage not configured")
		return
	}

	day, err := strconv.Atoi(dayRaw)
	if err != nil || day <= 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid day number")
		return
	}

	// The challenge must exist and belong to the tenant before signing a key.
	challenge, err := h.service.GetChallenge(r.Context(), claims.TenantID, challengeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if day > challenge.DurationDays {
		writeError(w, http.StatusUnprocessableEntity, "out_of_window", "day beyond challenge duration")
		return
	}

	// Body is optional; an empty or malformed body defaults the content type.
	var req PhotoURLRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := h.photos.CheckInPhotoKey(claims.TenantID, challengeID, day)
	uploadURL, err := h.photos.UploadURL(r.Context(), key, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	downloadURL, err := h.photos.DownloadURL(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PhotoURLResponse{
		PhotoKey:    key,
		UploadURL:   uploadURL,
		DownloadURL: downloadURL,
	})
}

func (h *Handler) dailyQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = claims.Subject
	}

	quote := h.quotes.DailyQuote(userID, time.Now().UTC())
	writeJSON(w, http.StatusOK, quote)
}

// requireScope enforces authentication plus any one of the listed scopes.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+strings.Join(scopes, " or ")+" required")
	return nil, false
}

func parseLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, "not_found", "challenge not found")
	case errors.Is(err, domain.ErrChallengeClosed):
		writeError(w, http.StatusConflict, "challenge_closed", "challenge is not active")
	case errors.Is(err, domain.ErrDuplicateCheckIn):
		writeError(w, http.StatusConflict, "duplicate_checkin", "check-in already recorded for this day")
	case errors.Is(err, domain.ErrCheckInOutOfWindow):
		writeError(w, http.StatusUnprocessableEntity, "out_of_window", "check-in date outside challenge window")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// CreateChallengeRequest is the payload for POST /v1/challenges.
type CreateChallengeRequest struct {
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	StartDate    time.Time `json:"start_date"`
	DurationDays int       `json:"duration_days"`
}

// Validate ensures request correctness.
func (r CreateChallengeRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title is required")
	}
	if r.DurationDays < 0 || r.DurationDays > 366 {
		return errors.New("duration_days must be between 1 and 366")
	}
	return nil
}

// RecordCheckInRequest is the payload for POST /v1/challenges/{id}/checkins.
type RecordCheckInRequest struct {
	Date     time.Time `json:"date"`
	Note     string    `json:"note"`
	PhotoKey string    `json:"photo_key"`
	Source   string    `json:"source"`
}

// Validate ensures request correctness.
func (r RecordCheckInRequest) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.New("source is required")
	}
	if len(r.Note) > 2000 {
		return errors.New("note must be at most 2000 characters")
	}
	return nil
}

// ChallengeView exposes challenge details.
type ChallengeView struct {
	ChallengeID  string    `json:"challenge_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	DurationDays int       `json:"duration_days"`
	State        string    `json:"state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckInView exposes one ledger entry.
type CheckInView struct {
	CheckInID   string    `json:"checkin_id"`
	ChallengeID string    `json:"challenge_id"`
	UserID      string    `json:"user_id"`
	DayNumber   int       `json:"day_number"`
	CheckInDate string    `json:"checkin_date"`
	Note        string    `json:"note,omitempty"`
	PhotoKey    string    `json:"photo_key,omitempty"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// MilestoneView exposes a milestone with its celebratory message.
type MilestoneView struct {
	Day     int    `json:"day"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// StreakSummaryView packages streak figures for the progress endpoint.
type StreakSummaryView struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	CheckedDays       int        `json:"checked_days"`
	CompletionPercent float64    `json:"completion_percent"`
	LastCheckInDate   *time.Time `json:"last_checkin_date,omitempty"`
}

// RecordCheckInResponse describes the response body for check-in create.
type RecordCheckInResponse struct {
	CheckIn            CheckInView    `json:"checkin"`
	Replay             bool           `json:"idempotent_replay"`
	CheckedDays        int            `json:"checked_days,omitempty"`
	Milestone          *MilestoneView `json:"milestone,omitempty"`
	ChallengeCompleted bool           `json:"challenge_completed,omitempty"`
}

// ListChallengesResponse packages list results.
type ListChallengesResponse struct {
	Items      []ChallengeView `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ListCheckInsResponse packages ledger pages.
type ListCheckInsResponse struct {
	Items      []CheckInView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ProgressResponse merges streak figures, milestones, and the recent timeline.
type ProgressResponse struct {
	Challenge        ChallengeView     `json:"challenge"`
	Summary          StreakSummaryView `json:"summary"`
	EarnedMilestones []MilestoneView   `json:"earned_milestones"`
	NextMilestone    *MilestoneView    `json:"next_milestone,omitempty"`
	Timeline         []CheckInView     `json:"timeline"`
	TimelineLimit    int               `json:"timeline_limit"`
}

// PhotoURLRequest optionally narrows the upload content type.
type PhotoURLRequest struct {
	ContentType string `json:"content_type"`
}

// PhotoURLResponse carries the presigned upload location and a read URL for
// rendering the photo once uploaded.
type PhotoURLResponse struct {
	PhotoKey    string `json:"photo_key"`
	UploadURL   string `json:"upload_url"`
	DownloadURL string `json:"download_url"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toChallengeView(challenge domain.Challenge) ChallengeView {
	return ChallengeView{
		ChallengeID:  challenge.ID,
		TenantID:     challenge.TenantID,
		UserID:       challenge.UserID,
		Title:        challenge.Title,
		Description:  challenge.Description,
		StartDate:    challenge.StartDate.Format("2006-01-02"),
		EndDate:      challenge.EndDate().Format("2006-01-02"),
		DurationDays: challenge.DurationDays,
		State:        string(challenge.State),
		CreatedAt:    challenge.CreatedAt,
		UpdatedAt:    challenge.UpdatedAt,
	}
}

func toCheckInView(checkIn domain.CheckIn) CheckInView {
	return CheckInView{
		CheckInID:   checkIn.ID,
		ChallengeID: checkIn.ChallengeID,
		UserID:      checkIn.UserID,
		DayNumber:   checkIn.DayNumber,
		CheckInDate: checkIn.CheckInDate.Format("2006-01-02"),
		Note:        checkIn.Note,
		PhotoKey:    checkIn.PhotoKey,
		Source:      checkIn.Source,
		CreatedAt:   checkIn.CreatedAt,
	}
}

func toMilestoneView(m domain.Milestone) *MilestoneView {
	return &MilestoneView{Day: m.Day, Tag: m.Tag, Message: m.Message}
}

func toMilestoneViewPtr(m *domain.Milestone) *MilestoneView {
	if m == nil {
		return nil
	}
	return toMilestoneView(*m)
}
