package models

import "time"

// User is an identity known to the chat platform. ID is the Telegram user id
// and never changes. ReferredBy and ReferralRewarded are write-once: once a
// referral has been rewarded for this user as referee, no further bonus is
// ever granted for them.
type User struct {
	ID               int64
	FirstName        string
	Username         string
	Locale           string
	JoinedAt         time.Time
	Banned           bool
	ReferredBy       *int64
	ReferralRewarded bool
}

// Subdomain is a provisioned DNS binding owned by a user.
type Subdomain struct {
	ID        int64
	UserID    int64
	FQDN      string
	IP        string
	CreatedAt time.Time
}

// Setting is one row of the string-keyed settings store.
type Setting struct {
	Name  string
	Value string
}

// Well-known settings names.
const (
	SettingBotStatus      = "bot_status"
	SettingForceChannels  = "force_channels"
	SettingWelcomeMessage = "welcome_message"
	SettingHelpMessage    = "help_message"
)
