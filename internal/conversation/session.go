package conversation

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// State is a step of the event creation (or deletion) flow.
type State string

const (
	StateIdle                    State = ""
	StateAwaitingName            State = "awaiting_name"
	StateAwaitingDate            State = "awaiting_date"
	StateAwaitingTime            State = "awaiting_time"
	StateAwaitingRecurrence      State = "awaiting_recurrence"
	StateAwaitingCategory        State = "awaiting_category"
	StateAwaitingNewCategoryName State = "awaiting_new_category_name"
	StateAwaitingDeleteID        State = "awaiting_delete_id"
)

// DisableState is the step of the disable confirmation flow,
// which runs independently of the creation flow.
type DisableState string

const (
	DisableIdle           DisableState = ""
	DisableAwaitingChoice DisableState = "awaiting_disable_choice"
)

// Draft is the event being assembled.
type Draft struct {
	Name       string            `json:"name,omitempty"`
	Date       string            `json:"date,omitempty"`   // YYYY-MM-DD
	DueAt      string            `json:"due_at,omitempty"` // canonical due
	Recurrence domain.Recurrence `json:"recurrence,omitempty"`
}

// Session is the per-user conversation state.
type Session struct {
	State   State        `json:"state,omitempty"`
	Draft   Draft        `json:"draft"`
	Disable DisableState `json:"disable,omitempty"`
}

// IsZero reports whether the session carries no state at all.
func (s Session) IsZero() bool { return s == Session{} }

func encodeSession(s Session) ([]byte, error) { return json.Marshal(s) }

func decodeSession(b []byte) (Session, error) {
	var s Session
	err := json.Unmarshal(b, &s)
	return s, err
}

// StateStore persists sessions keyed by user id.
type StateStore interface {
	Load(ctx context.Context, userID int64) (Session, error)
	Save(ctx context.Context, userID int64, s Session) error
	Clear(ctx context.Context, userID int64) error
}

// MemoryStateStore keeps sessions in process memory.
type MemoryStateStore struct {
	mu    sync.RWMutex
	state map[int64]Session
}

// NewMemoryStateStore creates an empty MemoryStateStore.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{state: make(map[int64]Session)}
}

func (m *MemoryStateStore) Load(_ context.Context, userID int64) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state[userID], nil
}

func (m *MemoryStateStore) Save(_ context.Context, userID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.IsZero() {
		delete(m.state, userID)
		return nil
	}
	m.state[userID] = s
	return nil
}

func (m *MemoryStateStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, userID)
	return nil
}
