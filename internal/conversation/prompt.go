package conversation

import (
	"context"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// Reply labels understood by the engine.
const (
	NoCategoryLabel  = "No category"
	NewCategoryLabel = "New category"

	DisableTemporaryLabel = "Disable for now"
	DisablePermanentLabel = "Disable permanently"
	DisableCancelLabel    = "Cancel"
)

// PromptKind tells the transport what to show next.
type PromptKind int

const (
	PromptEventName PromptKind = iota
	PromptDate
	PromptTime
	PromptRecurrence
	PromptInvalidRecurrence
	PromptCategory
	PromptNewCategoryName
	PromptEventCreated
	PromptFailed
	PromptDeleteID
	PromptDeleteInvalid
	PromptDeleteNotFound
	PromptDeleted
	PromptDisableChoice
	PromptDisabled
	PromptDisableCancelled
)

// Prompt is an outbound step of a conversation. Rendering is left to the transport.
type Prompt struct {
	Kind       PromptKind
	Year       int // calendar anchor for PromptDate
	Month      int
	Categories []domain.Category // PromptCategory
	Event      *domain.Event     // PromptEventCreated
	Permanent  bool              // PromptDisabled
}

// Messenger delivers prompts to a user.
type Messenger interface {
	Prompt(ctx context.Context, userID int64, p Prompt) error
}
