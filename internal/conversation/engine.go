package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
	"github.com/ykvlv/event-reminder-bot/internal/store"
)

// Engine drives the per-user event creation, deletion and disable flows.
// Handlers never block waiting for input: each call advances the session by
// one step, persists it, and returns.
type Engine struct {
	repo   store.Repo
	states StateStore
	out    Messenger
	log    *zap.Logger
	now    func() time.Time
	loc    *time.Location

	locks sync.Map // userID -> *sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to anchor the calendar.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithLocation sets the zone of the naive local clock.
func WithLocation(loc *time.Location) Option { return func(e *Engine) { e.loc = loc } }

// New creates an Engine.
func New(repo store.Repo, states StateStore, out Messenger, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:   repo,
		states: states,
		out:    out,
		log:    log,
		now:    time.Now,
		loc:    time.Local,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// lock serializes steps of one user; different users never contend.
func (e *Engine) lock(userID int64) func() {
	v, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Session returns the stored session of a user.
func (e *Engine) Session(ctx context.Context, userID int64) (Session, error) {
	return e.states.Load(ctx, userID)
}

// StartCreate begins a new event draft, discarding any flow in progress.
func (e *Engine) StartCreate(ctx context.Context, userID int64) {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok {
		return
	}
	sess.State = StateAwaitingName
	sess.Draft = Draft{}
	if e.save(ctx, userID, sess) {
		e.prompt(ctx, userID, Prompt{Kind: PromptEventName})
	}
}

// StartDelete asks for the id of the event to delete.
func (e *Engine) StartDelete(ctx context.Context, userID int64) {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok {
		return
	}
	sess.State = StateAwaitingDeleteID
	sess.Draft = Draft{}
	if e.save(ctx, userID, sess) {
		e.prompt(ctx, userID, Prompt{Kind: PromptDeleteID})
	}
}

// StartDisable offers the disable choices.
func (e *Engine) StartDisable(ctx context.Context, userID int64) {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok {
		return
	}
	sess.Disable = DisableAwaitingChoice
	if e.save(ctx, userID, sess) {
		e.prompt(ctx, userID, Prompt{Kind: PromptDisableChoice})
	}
}

// HandleText feeds a free-text message to the user's active flow.
// It reports whether the message was consumed.
func (e *Engine) HandleText(ctx context.Context, userID int64, text string) bool {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok {
		return true
	}

	if sess.Disable == DisableAwaitingChoice && isDisableChoice(text) {
		e.handleDisableChoice(ctx, userID, sess, text)
		return true
	}

	switch sess.State {
	case StateAwaitingName:
		// Names are taken verbatim, empty ones included.
		sess.Draft.Name = text
		sess.State = StateAwaitingDate
		if e.save(ctx, userID, sess) {
			now := e.now().In(e.loc)
			e.prompt(ctx, userID, Prompt{Kind: PromptDate, Year: now.Year(), Month: int(now.Month())})
		}

	case StateAwaitingRecurrence:
		r, err := domain.RecurrenceFromLabel(text)
		if err != nil {
			e.prompt(ctx, userID, Prompt{Kind: PromptInvalidRecurrence})
			return true
		}
		cats, err := e.repo.ListCategories(ctx, userID)
		if err != nil {
			e.fail(ctx, userID, "list categories", err)
			return true
		}
		sess.Draft.Recurrence = r
		sess.State = StateAwaitingCategory
		if e.save(ctx, userID, sess) {
			e.prompt(ctx, userID, Prompt{Kind: PromptCategory, Categories: cats})
		}

	case StateAwaitingCategory:
		switch text {
		case NewCategoryLabel:
			sess.State = StateAwaitingNewCategoryName
			if e.save(ctx, userID, sess) {
				e.prompt(ctx, userID, Prompt{Kind: PromptNewCategoryName})
			}
		case NoCategoryLabel:
			e.commit(ctx, userID, sess, nil, false)
		default:
			name := text
			e.commit(ctx, userID, sess, &name, false)
		}

	case StateAwaitingNewCategoryName:
		name := text
		e.commit(ctx, userID, sess, &name, true)

	case StateAwaitingDeleteID:
		e.handleDelete(ctx, userID, sess, text)

	default:
		return false
	}
	return true
}

// HandleDate records the selected calendar day. Ignored outside AwaitingDate.
func (e *Engine) HandleDate(ctx context.Context, userID int64, d domain.Date) bool {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok || sess.State != StateAwaitingDate {
		return false
	}
	sess.Draft.Date = d.String()
	sess.State = StateAwaitingTime
	if e.save(ctx, userID, sess) {
		e.prompt(ctx, userID, Prompt{Kind: PromptTime})
	}
	return true
}

// HandleTime combines the draft date with the selected slot. Ignored outside AwaitingTime.
func (e *Engine) HandleTime(ctx context.Context, userID int64, hour, minute int) bool {
	defer e.lock(userID)()

	sess, ok := e.load(ctx, userID)
	if !ok || sess.State != StateAwaitingTime {
		return false
	}
	date, err := time.Parse("2006-01-02", sess.Draft.Date)
	if err != nil {
		e.fail(ctx, userID, "parse draft date", err)
		return true
	}
	d := domain.Date{Year: date.Year(), Month: date.Month(), Day: date.Day()}
	sess.Draft.DueAt = d.At(hour, minute)
	sess.State = StateAwaitingRecurrence
	if e.save(ctx, userID, sess) {
		e.prompt(ctx, userID, Prompt{Kind: PromptRecurrence})
	}
	return true
}

// commit persists the draft: the new category first (if any), then the event.
// The two writes are independent; the draft is discarded either way.
func (e *Engine) commit(ctx context.Context, userID int64, sess Session, category *string, newCategory bool) {
	if newCategory {
		if _, err := e.repo.CreateCategory(ctx, userID, *category); err != nil {
			e.fail(ctx, userID, "create category", err)
			return
		}
	}

	due, err := domain.ParseDue(sess.Draft.DueAt, time.UTC)
	if err != nil {
		e.fail(ctx, userID, "normalize due", err)
		return
	}
	ev := &domain.Event{
		OwnerID:    userID,
		Name:       sess.Draft.Name,
		DueAt:      domain.FormatDue(due),
		Recurrence: sess.Draft.Recurrence,
		Category:   category,
	}
	if err := e.repo.CreateEvent(ctx, ev); err != nil {
		e.fail(ctx, userID, "create event", err)
		return
	}

	e.log.Info("event created",
		zap.Int64("user_id", userID),
		zap.Int64("event_id", ev.ID),
		zap.String("due_at", ev.DueAt),
		zap.String("recurrence", string(ev.Recurrence)),
	)
	e.reset(ctx, userID, sess)
	e.prompt(ctx, userID, Prompt{Kind: PromptEventCreated, Event: ev})
}

func (e *Engine) handleDelete(ctx context.Context, userID int64, sess Session, text string) {
	e.reset(ctx, userID, sess)

	id, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		e.prompt(ctx, userID, Prompt{Kind: PromptDeleteInvalid})
		return
	}
	err = e.repo.DeleteEvent(ctx, userID, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		e.prompt(ctx, userID, Prompt{Kind: PromptDeleteNotFound})
	case err != nil:
		e.log.Error("delete event failed", zap.Error(err), zap.Int64("user_id", userID), zap.Int64("event_id", id))
		e.prompt(ctx, userID, Prompt{Kind: PromptFailed})
	default:
		e.log.Info("event deleted", zap.Int64("user_id", userID), zap.Int64("event_id", id))
		e.prompt(ctx, userID, Prompt{Kind: PromptDeleted})
	}
}

func isDisableChoice(text string) bool {
	switch text {
	case DisableTemporaryLabel, DisablePermanentLabel, DisableCancelLabel:
		return true
	}
	return false
}

func (e *Engine) handleDisableChoice(ctx context.Context, userID int64, sess Session, text string) {
	sess.Disable = DisableIdle
	if !e.save(ctx, userID, sess) {
		return
	}
	if text == DisableCancelLabel {
		e.prompt(ctx, userID, Prompt{Kind: PromptDisableCancelled})
		return
	}
	if err := e.repo.SetActive(ctx, userID, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
		e.log.Error("disable failed", zap.Error(err), zap.Int64("user_id", userID))
		e.prompt(ctx, userID, Prompt{Kind: PromptFailed})
		return
	}
	e.log.Info("user disabled", zap.Int64("user_id", userID), zap.Bool("permanent", text == DisablePermanentLabel))
	e.prompt(ctx, userID, Prompt{Kind: PromptDisabled, Permanent: text == DisablePermanentLabel})
}

// fail reports an internal error to the user and drops the creation flow.
func (e *Engine) fail(ctx context.Context, userID int64, op string, err error) {
	e.log.Error("conversation step failed", zap.String("op", op), zap.Error(err), zap.Int64("user_id", userID))
	if sess, lerr := e.states.Load(ctx, userID); lerr == nil {
		e.reset(ctx, userID, sess)
	} else {
		_ = e.states.Clear(ctx, userID)
	}
	e.prompt(ctx, userID, Prompt{Kind: PromptFailed})
}

// reset returns the creation flow to Idle, keeping the disable flow as is.
func (e *Engine) reset(ctx context.Context, userID int64, sess Session) {
	sess.State = StateIdle
	sess.Draft = Draft{}
	if err := e.states.Save(ctx, userID, sess); err != nil {
		e.log.Warn("reset session failed", zap.Error(err), zap.Int64("user_id", userID))
	}
}

func (e *Engine) load(ctx context.Context, userID int64) (Session, bool) {
	sess, err := e.states.Load(ctx, userID)
	if err != nil {
		e.log.Error("load session failed", zap.Error(err), zap.Int64("user_id", userID))
		e.prompt(ctx, userID, Prompt{Kind: PromptFailed})
		return Session{}, false
	}
	return sess, true
}

func (e *Engine) save(ctx context.Context, userID int64, sess Session) bool {
	if err := e.states.Save(ctx, userID, sess); err != nil {
		e.log.Error("save session failed", zap.Error(err), zap.Int64("user_id", userID))
		e.prompt(ctx, userID, Prompt{Kind: PromptFailed})
		return false
	}
	return true
}

func (e *Engine) prompt(ctx context.Context, userID int64, p Prompt) {
	if err := e.out.Prompt(ctx, userID, p); err != nil {
		e.log.Warn("prompt delivery failed", zap.Error(err), zap.Int64("user_id", userID), zap.Int("kind", int(p.Kind)))
	}
}
