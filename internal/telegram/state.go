package telegram

import "sync"

// PendingInput names the one input the bot is waiting for next from a chat.
// Modeling this as a single tagged value (rather than independent flags)
// guarantees at most one "awaiting" state exists per chat at any time.
type PendingInput int

const (
	PendingNone PendingInput = iota

	// User-scoped: the next plain-text message is interpreted as this.
	PendingCreateIP
	PendingRebindIP

	// Operator-scoped: consumed before any menu-label matching so a stale
	// user-level expectation can never shadow an operator flow.
	PendingBroadcast
	PendingWelcomeText
	PendingBanID
	PendingUnbanID
	PendingChannelAdd
	PendingChannelRemove
)

// OperatorScoped reports whether the pending input belongs to an operator
// flow. Dispatch precedence is operator-pending > menu label > user-pending.
func (p PendingInput) OperatorScoped() bool {
	return p >= PendingBroadcast
}

// Session is the transient per-chat conversation state. It is never
// persisted; a restart drops in-flight multi-step interactions.
type Session struct {
	Pending      PendingInput
	RebindTarget string // fqdn awaiting a new IP, set with PendingRebindIP
	ChannelsMenu bool   // operator is inside the forced-channels submenu
}

type StateManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewStateManager() *StateManager {
	return &StateManager{
		sessions: make(map[int64]*Session),
	}
}

// Get returns a copy of the chat's session, zero-valued when none exists.
func (m *StateManager) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if session, ok := m.sessions[chatID]; ok {
		return *session
	}
	return Session{}
}

// SetPending records what the next text message means, replacing any previous
// expectation. The submenu flag survives so operator navigation stays intact.
func (m *StateManager) SetPending(chatID int64, pending PendingInput, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[chatID]
	if !ok {
		session = &Session{}
		m.sessions[chatID] = session
	}
	session.Pending = pending
	session.RebindTarget = target
}

// TakePending consumes the pending expectation, returning what it was. The
// flag is cleared regardless of what the triggering text contained.
func (m *StateManager) TakePending(chatID int64) (PendingInput, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[chatID]
	if !ok || session.Pending == PendingNone {
		return PendingNone, ""
	}
	pending, target := session.Pending, session.RebindTarget
	session.Pending = PendingNone
	session.RebindTarget = ""
	return pending, target
}

func (m *StateManager) SetChannelsMenu(chatID int64, inMenu bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[chatID]
	if !ok {
		session = &Session{}
		m.sessions[chatID] = session
	}
	session.ChannelsMenu = inMenu
}

func (m *StateManager) Reset(chatID int64) {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
}
