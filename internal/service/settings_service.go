package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/velmor/dnslinkbot/internal/models"
	"github.com/velmor/dnslinkbot/internal/repository"
)

const (
	defaultWelcomeMessage = "👋 Welcome!\n\n✅ Press 🔗 Bind IP and send an IP address to get your own subdomain."
	defaultHelpMessage    = "How it works:\n1) Press 🔗 Bind IP\n2) Send the IP address\n3) You get a random subdomain with A + NS records pointing at it."
)

// SettingsService is the process-wide policy store. Every read goes to the
// database so operator changes take effect on the next request without a
// restart.
type SettingsService struct {
	settings *repository.SettingsRepository
}

func NewSettingsService(settings *repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// Bootstrap seeds default values for settings that do not exist yet.
func (s *SettingsService) Bootstrap(ctx context.Context) error {
	defaults := map[string]string{
		models.SettingBotStatus:      "on",
		models.SettingWelcomeMessage: defaultWelcomeMessage,
		models.SettingHelpMessage:    defaultHelpMessage,
		models.SettingForceChannels:  "[]",
	}
	for name, value := range defaults {
		if err := s.settings.EnsureDefault(ctx, name, value); err != nil {
			return fmt.Errorf("bootstrap settings: %w", err)
		}
	}
	return nil
}

func (s *SettingsService) Get(ctx context.Context, name, fallback string) (string, error) {
	return s.settings.Get(ctx, name, fallback)
}

func (s *SettingsService) Set(ctx context.Context, name, value string) error {
	return s.settings.Set(ctx, name, value)
}

func (s *SettingsService) BotEnabled(ctx context.Context) (bool, error) {
	status, err := s.settings.Get(ctx, models.SettingBotStatus, "on")
	if err != nil {
		return false, err
	}
	return status == "on", nil
}

func (s *SettingsService) SetBotEnabled(ctx context.Context, enabled bool) error {
	status := "off"
	if enabled {
		status = "on"
	}
	return s.settings.Set(ctx, models.SettingBotStatus, status)
}

// WelcomeMessage returns the locale-specific welcome text when one is stored,
// falling back to the default-locale text.
func (s *SettingsService) WelcomeMessage(ctx context.Context, locale string) (string, error) {
	if locale != "" && locale != "en" {
		text, err := s.settings.Get(ctx, models.SettingWelcomeMessage+":"+locale, "")
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return s.settings.Get(ctx, models.SettingWelcomeMessage, defaultWelcomeMessage)
}

func (s *SettingsService) SetWelcomeMessage(ctx context.Context, locale, text string) error {
	name := models.SettingWelcomeMessage
	if locale != "" && locale != "en" {
		name += ":" + locale
	}
	return s.settings.Set(ctx, name, text)
}

func (s *SettingsService) HelpMessage(ctx context.Context, locale string) (string, error) {
	if locale != "" && locale != "en" {
		text, err := s.settings.Get(ctx, models.SettingHelpMessage+":"+locale, "")
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return s.settings.Get(ctx, models.SettingHelpMessage, defaultHelpMessage)
}

// ForceChannels returns the ordered forced-membership channel list, each
// normalized to an @-prefixed identifier. Malformed stored JSON degrades to
// an empty list rather than blocking every user.
func (s *SettingsService) ForceChannels(ctx context.Context) ([]string, error) {
	raw, err := s.settings.Get(ctx, models.SettingForceChannels, "[]")
	if err != nil {
		return nil, err
	}
	var stored []string
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return []string{}, nil
	}
	channels := make([]string, 0, len(stored))
	for _, ch := range stored {
		ch = NormalizeChannel(ch)
		if ch != "" {
			channels = append(channels, ch)
		}
	}
	return channels, nil
}

func (s *SettingsService) AddForceChannel(ctx context.Context, channel string) error {
	channel = NormalizeChannel(channel)
	if channel == "" {
		return fmt.Errorf("empty channel identifier")
	}
	channels, err := s.ForceChannels(ctx)
	if err != nil {
		return err
	}
	for _, existing := range channels {
		if existing == channel {
			return nil
		}
	}
	channels = append(channels, channel)
	return s.saveChannels(ctx, channels)
}

func (s *SettingsService) RemoveForceChannel(ctx context.Context, channel string) error {
	channel = NormalizeChannel(channel)
	channels, err := s.ForceChannels(ctx)
	if err != nil {
		return err
	}
	kept := channels[:0]
	for _, existing := range channels {
		if existing != channel {
			kept = append(kept, existing)
		}
	}
	return s.saveChannels(ctx, kept)
}

func (s *SettingsService) saveChannels(ctx context.Context, channels []string) error {
	raw, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}
	return s.settings.Set(ctx, models.SettingForceChannels, string(raw))
}

// NormalizeChannel trims a channel identifier and guarantees the @ prefix.
func NormalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return ""
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	if channel == "@" {
		return ""
	}
	return channel
}
