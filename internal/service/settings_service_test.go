package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/repository"
)

func newSettingsService(t *testing.T) (*SettingsService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSettingsService(repository.NewSettingsRepository(db)), mock
}

func expectSettingValue(mock sqlmock.Sqlmock, name, value string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE name = ?`)).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(value))
}

func expectSettingMissing(mock sqlmock.Sqlmock, name string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM settings WHERE name = ?`)).
		WithArgs(name).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
}

func TestBotEnabledDefaultsOn(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingMissing(mock, models.SettingBotStatus)

	enabled, err := svc.BotEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForceChannelsNormalized(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingValue(mock, models.SettingForceChannels, `["mychannel", "@other", "  ", ""]`)

	channels, err := svc.ForceChannels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"@mychannel", "@other"}, channels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForceChannelsMalformedJSON(t *testing.T) {
	svc, mock := newSettingsService(t)

	// Corrupt stored JSON must degrade to "no gate" rather than locking
	// every user out.
	expectSettingValue(mock, models.SettingForceChannels, `not json`)

	channels, err := svc.ForceChannels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, channels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddForceChannelDeduplicates(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingValue(mock, models.SettingForceChannels, `["@mychannel"]`)

	// Already present: no write happens.
	require.NoError(t, svc.AddForceChannel(context.Background(), "mychannel"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddForceChannelAppends(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingValue(mock, models.SettingForceChannels, `["@mychannel"]`)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`)).
		WithArgs(models.SettingForceChannels, `["@mychannel","@second"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.AddForceChannel(context.Background(), "second"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveForceChannel(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingValue(mock, models.SettingForceChannels, `["@mychannel","@second"]`)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO settings (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)`)).
		WithArgs(models.SettingForceChannels, `["@second"]`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.RemoveForceChannel(context.Background(), "@mychannel"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWelcomeMessageLocaleFallback(t *testing.T) {
	svc, mock := newSettingsService(t)

	// No Arabic override stored: fall back to the default-locale text.
	expectSettingMissing(mock, models.SettingWelcomeMessage+":ar")
	expectSettingValue(mock, models.SettingWelcomeMessage, "custom welcome")

	text, err := svc.WelcomeMessage(context.Background(), "ar")
	require.NoError(t, err)
	assert.Equal(t, "custom welcome", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWelcomeMessageLocaleOverride(t *testing.T) {
	svc, mock := newSettingsService(t)

	expectSettingValue(mock, models.SettingWelcomeMessage+":ar", "أهلاً")

	text, err := svc.WelcomeMessage(context.Background(), "ar")
	require.NoError(t, err)
	assert.Equal(t, "أهلاً", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizeChannel(t *testing.T) {
	assert.Equal(t, "@news", NormalizeChannel("news"))
	assert.Equal(t, "@news", NormalizeChannel("  @news "))
	assert.Equal(t, "", NormalizeChannel("   "))
	assert.Equal(t, "", NormalizeChannel("@"))
}
