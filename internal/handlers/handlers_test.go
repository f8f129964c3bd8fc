package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/clock"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/config"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/department"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/dto"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/routes"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/sequence"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/services"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const secret = "test-secret"

type server struct {
	app   *fiber.App
	db    *gorm.DB
	clock *clock.FakeClock
}

func newServer(t *testing.T, opts ...func(*config.Config)) *server {
	t.Helper()

	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:          secret,
		CORSOrigins:        "*",
		RequestTimeout:     5 * time.Second,
		EscalationDays:     7,
		EscalationSchedule: "0 0 * * *",
		Timezone:           "UTC",
		DisplayIDPrefix:    "NFSU",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	clk := clock.Fake(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	registry := department.Default()

	ledger := services.NewLedgerService(db)
	notifier := services.NewNotificationService(db, nil, clk, m)
	transitions := services.NewTransitionService(db, ledger, notifier, clk, m)
	complaints := services.NewComplaintService(db, cfg, registry, sequence.NewDB(db), ledger, notifier, clk, m)
	escalation := services.NewEscalationService(transitions, cfg, clk, m)
	analytics := services.NewAnalyticsService(db, complaints, registry, cfg.Location(), clk)

	app := fiber.New()
	routes.Setup(app, cfg, reg,
		handlers.NewHealthHandler(registry, func() error { return nil }),
		handlers.NewComplaintHandler(complaints, transitions),
		handlers.NewNotificationHandler(notifier),
		handlers.NewDepartmentHandler(ledger),
		handlers.NewEscalationHandler(escalation),
		handlers.NewAnalyticsHandler(analytics),
	)
	return &server{app: app, db: db, clock: clk}
}

func token(t *testing.T, u models.User) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": u.Role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	if u.Department != "" {
		claims["department"] = u.Department
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (s *server) do(t *testing.T, method, path string, as *models.User, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *as))
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHealthIsPublic(t *testing.T) {
	s := newServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health dto.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, 7, health.DepartmentCount)
}

func TestComplaintsRequireToken(t *testing.T) {
	s := newServer(t)

	resp, _ := s.do(t, http.MethodGet, "/api/complaints", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bogus := models.User{ID: uuid.New(), Role: "janitor"}
	resp, _ = s.do(t, http.MethodGet, "/api/complaints", &bogus, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	student := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")
	other := testutil.CreateUser(t, s.db, "Ben", models.RoleStudent, "")
	staff := testutil.CreateUser(t, s.db, "Ravi", models.RoleDepartment, "Canteen")
	admin := testutil.CreateUser(t, s.db, "Root", models.RoleAdmin, "")

	resp, body := s.do(t, http.MethodPost, "/api/complaints", &student, dto.CreateComplaintRequest{
		Category:    "Canteen",
		Title:       "Cold food",
		Description: "Lunch was cold",
		Priority:    models.PriorityHigh,
		Anonymous:   true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created dto.ComplaintResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "NFSU26100001", created.DisplayID)
	assert.Equal(t, models.StatusPending, created.Status)
	assert.Equal(t, "Asha", created.Submitter.Name)

	resp, _ = s.do(t, http.MethodPost, "/api/complaints", &staff, dto.CreateComplaintRequest{
		Category: "Canteen", Title: "x", Description: "y",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	path := fmt.Sprintf("/api/complaints/%s", created.ID)

	resp, body = s.do(t, http.MethodGet, path, &staff, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var staffView dto.ComplaintResponse
	require.NoError(t, json.Unmarshal(body, &staffView))
	assert.Equal(t, "Anonymous", staffView.Submitter.Name)
	assert.Equal(t, "***", staffView.Submitter.ID)
	assert.NotContains(t, string(body), student.ID.String())

	resp, _ = s.do(t, http.MethodGet, path, &other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/complaints/"+uuid.NewString(), &admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/complaints/not-a-uuid", &admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, path+"/status", &staff, dto.TransitionRequest{Status: models.StatusResolved})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "remarks required")

	resp, _ = s.do(t, http.MethodPut, path+"/status", &student, dto.TransitionRequest{Status: models.StatusInProgress})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPut, path+"/status", &admin, dto.TransitionRequest{Status: models.StatusEscalated, Remarks: "slow"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, http.MethodPut, path+"/status", &staff, dto.TransitionRequest{Status: models.StatusResolved, Remarks: "Fixed"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var resolved dto.ComplaintResponse
	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.Equal(t, models.StatusResolved, resolved.Status)
	require.Len(t, resolved.StatusHistory, 1)
	assert.Equal(t, "Fixed", resolved.StatusHistory[0].Remarks)

	resp, _ = s.do(t, http.MethodPut, path+"/feedback", &student, dto.FeedbackRequest{Rating: 5, Comment: "Thanks"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPut, path+"/feedback", &student, dto.FeedbackRequest{Rating: 5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/notifications", &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inbox dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(body, &inbox))
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, int64(1), inbox.UnreadCount)
	assert.Equal(t, models.NotificationStatusUpdate, inbox.Notifications[0].Kind)

	resp, _ = s.do(t, http.MethodPut, "/api/notifications/"+inbox.Notifications[0].ID.String()+"/read", &other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodPut, "/api/notifications/read-all", &student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var marked dto.MarkAllReadResponse
	require.NoError(t, json.Unmarshal(body, &marked))
	assert.Equal(t, int64(1), marked.Updated)
}

func TestListAndStatsAreScoped(t *testing.T) {
	s := newServer(t)
	asha := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")
	ben := testutil.CreateUser(t, s.db, "Ben", models.RoleStudent, "")

	for _, tc := range []struct {
		who      *models.User
		category string
		title    string
	}{
		{&asha, "Canteen", "Cold food"},
		{&asha, "Sports", "Broken net"},
		{&ben, "Canteen", "Long queue"},
	} {
		resp, body := s.do(t, http.MethodPost, "/api/complaints", tc.who, dto.CreateComplaintRequest{
			Category: tc.category, Title: tc.title, Description: "details",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := s.do(t, http.MethodGet, "/api/complaints?category=Canteen", &asha, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.ComplaintListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "Cold food", list.Complaints[0].Title)

	resp, _ = s.do(t, http.MethodGet, "/api/complaints?status=closed", &asha, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/complaints/stats", &asha, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[models.StatusPending])
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	student := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")
	admin := testutil.CreateUser(t, s.db, "Root", models.RoleAdmin, "")

	resp, body := s.do(t, http.MethodPost, "/api/complaints", &student, dto.CreateComplaintRequest{
		Category: "Academic", Title: "Missing grades", Description: "Semester 3",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = s.do(t, http.MethodPost, "/api/admin/escalations/sweep", &student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	s.clock.Advance(8 * 24 * time.Hour)
	resp, body = s.do(t, http.MethodPost, "/api/admin/escalations/sweep", &admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var sweep dto.SweepResponse
	require.NoError(t, json.Unmarshal(body, &sweep))
	assert.Equal(t, 1, sweep.Candidates)
	assert.Equal(t, 1, sweep.Escalated)
	assert.Empty(t, sweep.Failed)

	resp, body = s.do(t, http.MethodPost, "/api/admin/departments/reconcile", &admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var departments []dto.DepartmentResponse
	require.NoError(t, json.Unmarshal(body, &departments))
	require.Len(t, departments, 7)
	assert.Equal(t, "Academic", departments[0].Name)
	assert.Equal(t, int64(1), departments[0].TotalComplaints)
	assert.Equal(t, int64(1), departments[0].PendingComplaints)

	resp, _ = s.do(t, http.MethodGet, "/api/departments", &student, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)
	student := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")

	resp, body := s.do(t, http.MethodPost, "/api/complaints", &student, dto.CreateComplaintRequest{
		Category: "Sports", Title: "Broken net", Description: "Court 2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `complaints_created_total{category="Sports"} 1`)
}

func TestAnalyticsRoutes(t *testing.T) {
	s := newServer(t)
	student := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")
	canteen := testutil.CreateUser(t, s.db, "Ravi", models.RoleDepartment, "Canteen")
	admin := testutil.CreateUser(t, s.db, "Root", models.RoleAdmin, "")

	resp, body := s.do(t, http.MethodPost, "/api/complaints", &student, dto.CreateComplaintRequest{
		Category: "Canteen", Title: "Cold food", Description: "Lunch was cold", Anonymous: true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, _ = s.do(t, http.MethodGet, "/api/analytics/dashboard", &canteen, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/analytics/dashboard", &admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var dashboard dto.DashboardResponse
	require.NoError(t, json.Unmarshal(body, &dashboard))
	assert.Equal(t, int64(1), dashboard.Overview.TotalComplaints)
	assert.Equal(t, int64(1), dashboard.Overview.TotalStudents)
	assert.Equal(t, int64(7), dashboard.Overview.TotalDepartments)
	assert.Equal(t, []dto.DailyCountResponse{{Day: "2026-10-15", Count: 1}}, dashboard.Daily)
	require.Len(t, dashboard.Recent, 1)
	assert.Equal(t, "Asha", dashboard.Recent[0].Submitter.Name)

	resp, body = s.do(t, http.MethodGet, "/api/analytics/department/Canteen", &canteen, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var dept dto.DepartmentAnalyticsResponse
	require.NoError(t, json.Unmarshal(body, &dept))
	assert.Equal(t, int64(1), dept.Total)
	require.Len(t, dept.Recent, 1)
	assert.Equal(t, "Anonymous", dept.Recent[0].Submitter.Name)

	resp, _ = s.do(t, http.MethodGet, "/api/analytics/department/Sports", &canteen, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/analytics/department/Canteen", &student, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/api/analytics/department/Library", &admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExpiredRequestContextMapsToTimeout(t *testing.T) {
	s := newServer(t, func(cfg *config.Config) { cfg.RequestTimeout = time.Nanosecond })
	student := testutil.CreateUser(t, s.db, "Asha", models.RoleStudent, "")

	resp, body := s.do(t, http.MethodGet, "/api/complaints", &student, nil)
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode, string(body))

	resp, _ = s.do(t, http.MethodPost, "/api/complaints", &student, dto.CreateComplaintRequest{
		Category: "Canteen", Title: "Cold food", Description: "Lunch was cold",
	})
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)

	var count int64
	require.NoError(t, s.db.Model(&models.Complaint{}).Count(&count).Error)
	assert.Zero(t, count)
}
