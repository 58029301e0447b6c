package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/hundreddays/internal/auth"
	"example.com/hundreddays/internal/domain"
	"example.com/hundreddays/internal/quotes"
)

func testClaims(scopes ...string) *auth.Claims {
	scopeSet := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		scopeSet[s] = struct{}{}
	}
	return &auth.Claims{
		Subject:   "tester",
		TenantID:  "tenant-1",
		Scopes:    scopeSet,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func authed(req *http.Request, claims *auth.Claims) *http.Request {
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

func testChallenge() *domain.Challenge {
	return &domain.Challenge{
		ID:           "ch-1",
		TenantID:     "tenant-1",
		UserID:       "user-1",
		Title:        "100 days of writing",
		StartDate:    domain.DateOnly(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)),
		DurationDays: 100,
		State:        domain.ChallengeStateActive,
		CreatedAt:    time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestCreateChallengeSuccess(t *testing.T) {
	repo := &mockRepo{}
	handler := NewHandler(domain.NewService(repo), quotes.NewCatalog(), nil)

	body, _ := json.Marshal(CreateChallengeRequest{
		UserID: "user-1",
		Title:  "100 days of writing",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges", bytes.NewReader(body))
	req = authed(req, testClaims(auth.ScopeChallengesWrite))

	rr := httptest.NewRecorder()
	handler.createChallenge(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ChallengeView
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.DurationDays != 100 {
		t.Fatalf("expected default duration 100 got %d", resp.DurationDays)
	}
	if resp.State != "active" {
		t.Fatalf("expected active state got %q", resp.State)
	}
	if resp.TenantID != "tenant-1" {
		t.Fatalf("expected tenant from claims got %q", resp.TenantID)
	}
}

func TestCreateChallengeRequiresTitle(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), quotes.NewCatalog(), nil)

	body, _ := json.Marshal(CreateChallengeRequest{UserID: "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges", bytes.NewReader(body))
	req = authed(req, testClaims(auth.ScopeChallengesWrite))

	rr := httptest.NewRecorder()
	handler.createChallenge(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rr.Code)
	}
}

func TestCreateChallengeRequiresScope(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), quotes.NewCatalog(), nil)

	body, _ := json.Marshal(CreateChallengeRequest{UserID: "user-1", Title: "t"})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges", bytes.NewReader(body))
	req = authed(req, testClaims(auth.ScopeChallengesRead))

	rr := httptest.NewRecorder()
	handler.createChallenge(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rr.Code)
	}
}

func TestRecordCheckInAccepted(t *testing.T) {
	repo := &mockRepo{challenge: testChallenge(), checkedDays: []int{1, 2, 3, 4, 5, 6}}
	service := domain.NewService(repo).WithClock(func() time.Time {
		return time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)
	})
	handler := NewHandler(service, quotes.NewCatalog(), nil)

	body, _ := json.Marshal(RecordCheckInRequest{Source: "api", Note: "day seven"})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins", bytes.NewReader(body))
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.recordCheckIn(rr, req, "ch-1")

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordCheckInResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.CheckIn.DayNumber != 7 {
		t.Fatalf("expected day 7 got %d", resp.CheckIn.DayNumber)
	}
	if resp.Milestone == nil || resp.Milestone.Tag != "one-week" {
		t.Fatalf("expected one-week milestone got %+v", resp.Milestone)
	}
	if resp.Replay {
		t.Fatal("expected fresh check-in, not a replay")
	}
}

func TestRecordCheckInDuplicateConflict(t *testing.T) {
	repo := &mockRepo{challenge: testChallenge(), checkedDays: []int{1, 2, 3}}
	service := domain.NewService(repo).WithClock(func() time.Time {
		return time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	})
	handler := NewHandler(service, quotes.NewCatalog(), nil)

	body, _ := json.Marshal(RecordCheckInRequest{Source: "api"})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins", bytes.NewReader(body))
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.recordCheckIn(rr, req, "ch-1")

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRecordCheckInIdempotentReplayReturnsOK(t *testing.T) {
	existing := &domain.CheckIn{ID: "ci-1", ChallengeID: "ch-1", TenantID: "tenant-1", DayNumber: 3, CheckInDate: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)}
	repo := &mockRepo{challenge: testChallenge(), byIdempotent: map[string]*domain.CheckIn{"key-1": existing}}
	handler := NewHandler(domain.NewService(repo), quotes.NewCatalog(), nil)

	body, _ := json.Marshal(RecordCheckInRequest{Source: "api"})
	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins", bytes.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.recordCheckIn(rr, req, "ch-1")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp RecordCheckInResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Replay {
		t.Fatal("expected idempotent_replay true")
	}
	if resp.CheckIn.CheckInID != "ci-1" {
		t.Fatalf("expected original check-in id got %q", resp.CheckIn.CheckInID)
	}
}

func TestChallengeProgress(t *testing.T) {
	repo := &mockRepo{
		challenge:   testChallenge(),
		checkedDays: []int{1, 2, 3, 4, 5, 6, 7},
		checkIns: []domain.CheckIn{
			{ID: "ci-7", ChallengeID: "ch-1", DayNumber: 7, CheckInDate: time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)},
			{ID: "ci-6", ChallengeID: "ch-1", DayNumber: 6, CheckInDate: time.Date(2026, time.March, 6, 0, 0, 0, 0, time.UTC)},
		},
	}
	service := domain.NewService(repo).WithClock(func() time.Time {
		return time.Date(2026, time.March, 7, 22, 0, 0, 0, time.UTC)
	})
	handler := NewHandler(service, quotes.NewCatalog(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/challenges/ch-1/progress?timeline_limit=2", nil)
	req = authed(req, testClaims(auth.ScopeCheckInsRead))

	rr := httptest.NewRecorder()
	handler.challengeProgress(rr, req, "ch-1")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp ProgressResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Summary.CurrentStreak != 7 {
		t.Fatalf("expected current streak 7 got %d", resp.Summary.CurrentStreak)
	}
	if len(resp.EarnedMilestones) != 2 {
		t.Fatalf("expected 2 earned milestones got %d", len(resp.EarnedMilestones))
	}
	if resp.NextMilestone == nil || resp.NextMilestone.Day != 14 {
		t.Fatalf("expected next milestone at 14 got %+v", resp.NextMilestone)
	}
	if len(resp.Timeline) != 2 {
		t.Fatalf("expected timeline length 2 got %d", len(resp.Timeline))
	}
}

func TestProgressUnknownChallenge(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), quotes.NewCatalog(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/challenges/missing/progress", nil)
	req = authed(req, testClaims(auth.ScopeCheckInsRead))

	rr := httptest.NewRecorder()
	handler.challengeProgress(rr, req, "missing")

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

func TestPhotoUploadURL(t *testing.T) {
	repo := &mockRepo{challenge: testChallenge()}
	handler := NewHandler(domain.NewService(repo), quotes.NewCatalog(), stubSigner{})

	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins/7/photo-url", nil)
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.photoUploadURL(rr, req, "ch-1", "7")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp PhotoURLResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.PhotoKey != "tenants/tenant-1/challenges/ch-1/checkins/day-007.jpg" {
		t.Fatalf("unexpected photo key %q", resp.PhotoKey)
	}
	if resp.UploadURL == "" {
		t.Fatal("expected non-empty upload url")
	}
	if resp.DownloadURL == "" {
		t.Fatal("expected non-empty download url")
	}
}

func TestPhotoUploadURLUnavailableWithoutStore(t *testing.T) {
	repo := &mockRepo{challenge: testChallenge()}
	handler := NewHandler(domain.NewService(repo), quotes.NewCatalog(), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins/7/photo-url", nil)
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.photoUploadURL(rr, req, "ch-1", "7")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
}

func TestPhotoUploadURLRejectsDayPastDuration(t *testing.T) {
	repo := &mockRepo{challenge: testChallenge()}
	handler := NewHandler(domain.NewService(repo), quotes.NewCatalog(), stubSigner{})

	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/ch-1/checkins/101/photo-url", nil)
	req = authed(req, testClaims(auth.ScopeCheckInsWrite))

	rr := httptest.NewRecorder()
	handler.photoUploadURL(rr, req, "ch-1", "101")

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rr.Code)
	}
}

func TestDailyQuote(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), quotes.NewCatalog(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/quotes/daily?user_id=user-1", nil)
	req = authed(req, testClaims())

	rr := httptest.NewRecorder()
	handler.dailyQuote(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var quote quotes.Quote
	if err := json.Unmarshal(rr.Body.Bytes(), &quote); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if quote.Content == "" {
		t.Fatal("expected non-empty quote content")
	}
}

func TestSubtreeRoutesUnknownResource(t *testing.T) {
	handler := NewHandler(domain.NewService(&mockRepo{}), quotes.NewCatalog(), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/challenges/ch-1/bogus", nil)
	req = authed(req, testClaims(auth.ScopeChallengesRead))

	rr := httptest.NewRecorder()
	handler.challengeSubtree(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rr.Code)
	}
}

type stubSigner struct{}

func (stubSigner) CheckInPhotoKey(tenantID, challengeID string, day int) string {
	return "tenants/" + tenantID + "/challenges/" + challengeID + "/checkins/day-007.jpg"
}

func (stubSigner) UploadURL(_ context.Context, key, contentType string) (string, error) {
	return "https://example-bucket.s3.amazonaws.com/" + key + "?signature=stub", nil
}

func (stubSigner) DownloadURL(_ context.Context, key string) (string, error) {
	return "https://example-bucket.s3.amazonaws.com/" + key + "?signature=stub-read", nil
}

type mockRepo struct {
	challenge    *domain.Challenge
	checkedDays  []int
	checkIns     []domain.CheckIn
	byIdempotent map[string]*domain.CheckIn
}

func (m *mockRepo) CreateChallenge(ctx context.Context, challenge domain.Challenge) error {
	m.challenge = &challenge
	return nil
}

func (m *mockRepo) GetChallenge(ctx context.Context, tenantID, challengeID string) (*domain.Challenge, error) {
	if m.challenge == nil || m.challenge.ID != challengeID {
		return nil, nil
	}
	copied := *m.challenge
	return &copied, nil
}

func (m *mockRepo) ListChallengesByUser(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.Challenge, *domain.Cursor, error) {
	if m.challenge == nil {
		return nil, nil, nil
	}
	return []domain.Challenge{*m.challenge}, nil, nil
}

func (m *mockRepo) UpdateChallengeState(ctx context.Context, tenantID, challengeID string, state domain.ChallengeState, updatedAt time.Time) error {
	m.challenge.State = state
	return nil
}

func (m *mockRepo) FindCheckInByIdempotency(ctx context.Context, tenantID, challengeID, idempotencyKey string) (*domain.CheckIn, error) {
	if existing, ok := m.byIdempotent[idempotencyKey]; ok {
		return existing, nil
	}
	return nil, nil
}

func (m *mockRepo) CreateCheckIn(ctx context.Context, checkIn domain.CheckIn, idempotencyKey string, outcome domain.CheckInOutcome) error {
	m.checkIns = append([]domain.CheckIn{checkIn}, m.checkIns...)
	return nil
}

func (m *mockRepo) ListCheckedDays(ctx context.Context, tenantID, challengeID string) ([]int, error) {
	return m.checkedDays, nil
}

func (m *mockRepo) ListCheckIns(ctx context.Context, tenantID, challengeID string, cursor *domain.Cursor, limit int) ([]domain.CheckIn, *domain.Cursor, error) {
	if limit <= 0 || limit > len(m.checkIns) {
		limit = len(m.checkIns)
	}
	out := make([]domain.CheckIn, limit)
	copy(out, m.checkIns[:limit])
	return out, nil, nil
}
