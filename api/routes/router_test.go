package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"testing"

	"github.com/google/uuid"

	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/commission"
	"github.com/velafit/coachrewards-backend/internal/eligibility"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/partnership"
	"github.com/velafit/coachrewards-backend/internal/tier"
	pkgAuth "github.com/velafit/coachrewards-backend/pkg/auth"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db/models"
	"github.com/velafit/coachrewards-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubLedgerRepo struct {
	ledger.Repository
}

type stubLedgerService struct {
	ledger.Service
}

type stubEligibilityService struct {
	eligibility.Service

	decision *models.EligibilityDecision
}

func (s stubEligibilityService) GetDecision(context.Context, uuid.UUID) (*models.EligibilityDecision, error) {
	return s.decision, nil
}

type stubPartnershipService struct {
	partnership.Service
}

type stubEngine struct {
	commission.Engine
}

type stubAuditService struct {
	audit.Service
}

func (stubAuditService) Record(context.Context, audit.RecordInput) {}

func (stubAuditService) Stats(_ context.Context, from, to time.Time) (audit.Stats, error) {
	return audit.Stats{From: from, To: to, TotalEvents: 7}, nil
}

type stubCompletedCounter struct{}

func (stubCompletedCounter) CountCompletedByCoach(context.Context, uuid.UUID) (int64, error) {
	return 12, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "coachrewards-test", ExpirationMinutes: 15},
		Commission: config.CommissionConfig{
			TierSilverThreshold:   5,
			TierGoldThreshold:     10,
			TierPlatinumThreshold: 20,
		},
	}
}

func newTestRouter(t *testing.T, decision *models.EligibilityDecision) http.Handler {
	t.Helper()

	resolver, err := tier.NewResolver(stubCompletedCounter{}, testConfig().Commission)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	return NewRouter(
		testConfig(),
		nil,
		stubPinger{},
		nil,
		stubLedgerRepo{},
		stubLedgerService{},
		orders.NewRepository(nil),
		stubEligibilityService{decision: decision},
		stubPartnershipService{},
		stubEngine{},
		nil,
		resolver,
		stubAuditService{},
	)
}

func mintToken(t *testing.T, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouter_HealthLive(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "live") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_HealthReady(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_AuthRequired(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coaches/"+uuid.NewString()+"/tier", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRouter_CoachTier(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/coaches/"+uuid.NewString()+"/tier", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleCoach))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(enums.CoachTierGold)) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_GetEligibility(t *testing.T) {
	orderID := uuid.New()
	router := newTestRouter(t, &models.EligibilityDecision{
		ID:       uuid.New(),
		OrderID:  orderID,
		Eligible: true,
		Reason:   enums.EligibilityReasonDormant,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/eligibility", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleCoach))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), string(enums.EligibilityReasonDormant)) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRouter_AdminOnly(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit/stats", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleCoach))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("coach status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/v1/audit/stats", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.ActorRoleAdmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "total_events") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

