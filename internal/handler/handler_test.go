package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/opsdesk/shiftdesk/backend/internal/conflict"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Publish(_ context.Context, msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

type codeChecker string

func (c codeChecker) Check(code string) bool {
	return code == string(c)
}

type testServer struct {
	handler  *Handler
	mock     sqlmock.Sqlmock
	redis    *miniredis.Miniredis
	notifier *recordingNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 1
	cfg.Token.WeeklyTTL = 168
	cfg.Token.PermanentTTL = 8760
	cfg.Token.RegistrationTTL = 72
	cfg.Token.MaxIssueAttempts = 3
	cfg.Override.PendingExpiration = 600
	cfg.Public.Origin = "https://shift.example.com"

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	notifier := &recordingNotifier{}
	h, err := NewHandler(cfg, repository.NewRepository(cfg, db), conflict.NewRedisStore(rdb, time.Second), codeChecker("8848"), notifier)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testServer{handler: h, mock: mock, redis: mr, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.Mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := Response{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sessionCookie(t *testing.T, userID int64, role domain.Role) *http.Cookie {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Subject:   strconv.FormatInt(userID, 10),
		},
	})
	ss, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return &http.Cookie{Name: authCookieName, Value: ss}
}

func (s *testServer) expectManager(userID, businessID int64) {
	s.mock.ExpectQuery("FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "full_name", "email", "role", "business_id", "is_active", "created_at", "version"}).
			AddRow("manager", "x", "店长", "m@example.com", string(domain.RoleBusinessManager), businessID, true, time.Now(), 1))
}

func (s *testServer) expectToken(value string, employeeID int64, purpose domain.TokenPurpose, week *domain.Week, used bool) {
	var start, end any
	if week != nil {
		start, end = week.Start, week.End
	}
	s.mock.ExpectQuery("FROM shift_tokens").
		WithArgs(value).
		WillReturnRows(sqlmock.NewRows([]string{"id", "employee_id", "purpose", "week_start", "week_end", "created_at", "expires_at", "is_used", "used_at", "submitted_data"}).
			AddRow(1, employeeID, string(purpose), start, end, time.Now(), time.Now().Add(time.Hour), used, nil, nil))
}

func (s *testServer) expectEmployee(id, businessID int64) {
	s.mock.ExpectQuery("FROM employees WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"business_id", "full_name", "phone", "email", "is_active", "registered", "created_at", "version"}).
			AddRow(businessID, "李四", "13800000000", "lisi@example.com", true, true, time.Now(), 1))
}

func (s *testServer) expectBranch(id, businessID int64) {
	s.mock.ExpectQuery("FROM branches WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"business_id", "name", "address", "created_at", "version"}).
			AddRow(businessID, "一号店", "天河区1号", time.Now(), 1))
}

func dataMap(t *testing.T, resp Response) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "unexpected data %#v", resp.Data)
	return m
}
