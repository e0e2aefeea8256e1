package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmor/dnslinkbot/internal/config"
	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/repository"
	"github.com/velmor/dnslinkbot/internal/service"
)

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{AdminID: 99, DailyLimit: 5, LabelLength: 6, BaseDomain: "link.example.net"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := service.NewUserService(repository.NewUserRepository(db))
	quota := service.NewQuotaService(cfg, repository.NewQuotaRepository(db))
	settings := service.NewSettingsService(repository.NewSettingsRepository(db))
	domains := service.NewDomainService(cfg, log, quota, nil, repository.NewDomainRepository(db), settings)

	srv := NewServer(":0", "op", "secret", log, users, domains, settings, nil)
	return srv, mock
}

func doRequest(srv *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.SetBasicAuth("op", "secret")
	}
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/stats", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
}

func TestAuthWrongPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.SetBasicAuth("op", "wrong")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStats(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users WHERE banned = 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM domains`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE name = ?`)).
		WithArgs(models.SettingBotStatus).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("on"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE name = ?`)).
		WithArgs(models.SettingForceChannels).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`["@mychannel"]`))

	rec := doRequest(srv, http.MethodGet, "/stats", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users         int      `json:"users"`
		Banned        int      `json:"banned"`
		Domains       int      `json:"domains"`
		Enabled       bool     `json:"enabled"`
		ForceChannels []string `json:"force_channels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.Users)
	assert.Equal(t, 2, resp.Banned)
	assert.Equal(t, 30, resp.Domains)
	assert.True(t, resp.Enabled)
	assert.Equal(t, []string{"@mychannel"}, resp.ForceChannels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPutSetting(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`)).
		WithArgs("bot_status", "off").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(srv, http.MethodPut, "/settings/bot_status", `{"value":"off"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSetting(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE name = ?`)).
		WithArgs("bot_status").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("on"))

	rec := doRequest(srv, http.MethodGet, "/settings/bot_status", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "on", resp["value"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBanUser(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET banned = ? WHERE id = ?`)).
		WithArgs(1, int64(1001)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(srv, http.MethodPost, "/users/1001/ban", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBanUserInvalidID(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/users/notanumber/ban", "", true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBroadcastRejectsEmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/broadcast", `{"message":"   "}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
