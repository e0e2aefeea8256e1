package service

import "errors"

var (
	// ErrQuotaExceeded declines a provisioning action once the daily
	// allowance (base limit plus earned bonus) is spent.
	ErrQuotaExceeded = errors.New("daily quota exceeded")

	// ErrNotOwner is returned for rebind/delete attempts on a subdomain the
	// requester does not own. It is deliberately generic so the response
	// never reveals whether the name exists for someone else.
	ErrNotOwner = errors.New("subdomain not found for this user")

	// ErrServiceDisabled means the operator has paused the bot.
	ErrServiceDisabled = errors.New("service is currently disabled")

	// ErrUserBanned means the requesting user is banned.
	ErrUserBanned = errors.New("user is banned")

	// ErrEmptyIP rejects a provisioning request without an address.
	ErrEmptyIP = errors.New("ip address must not be empty")
)
