package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
	"github.com/ykvlv/event-reminder-bot/internal/store"
)

// DefaultSpec fires at the start of every minute.
const DefaultSpec = "* * * * *"

// Sender is a minimal interface the scheduler needs to send a text message.
// telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Scheduler fires reminders for events whose due minute has arrived.
type Scheduler struct {
	repo   store.Repo
	log    *zap.Logger
	sender Sender
	loc    *time.Location
	spec   string
	now    func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation sets the zone in which due times are written.
func WithLocation(loc *time.Location) Option { return func(s *Scheduler) { s.loc = loc } }

// WithSpec overrides the cron spec of the tick.
func WithSpec(spec string) Option { return func(s *Scheduler) { s.spec = spec } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// New creates a new Scheduler.
func New(repo store.Repo, log *zap.Logger, sender Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		repo:   repo,
		log:    log,
		sender: sender,
		loc:    time.Local,
		spec:   DefaultSpec,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run schedules the tick and blocks until ctx is canceled.
// A tick that overruns into the next minute makes that minute's tick skip.
func (s *Scheduler) Run(ctx context.Context) error {
	cl := cronLogger{s.log.Sugar()}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.spec, func() { s.Tick(ctx, s.now()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}

	c.Start()
	s.log.Info("scheduler started", zap.String("spec", s.spec), zap.String("tz", s.loc.String()))

	<-ctx.Done()
	s.log.Info("scheduler stopping")
	<-c.Stop().Done()
	return nil
}

// TickResult summarizes one tick.
type TickResult struct {
	Due     int
	Sent    int
	Skipped int // owner inactive or unknown
	Failed  int
}

// Tick processes every event due at now's minute. Errors on one event are
// logged and never stop the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickResult {
	due := domain.NowDue(now, s.loc)
	log := s.log.With(zap.String("tick_id", uuid.NewString()), zap.String("due", due))

	events, err := s.repo.ListDue(ctx, due)
	if err != nil {
		log.Error("ListDue failed", zap.Error(err))
		return TickResult{Failed: 1}
	}

	res := TickResult{Due: len(events)}
	for _, ev := range events {
		switch s.process(ctx, log, ev) {
		case outcomeSent:
			res.Sent++
		case outcomeSkipped:
			res.Skipped++
		case outcomeFailed:
			res.Failed++
		}
	}
	if res.Due > 0 {
		log.Info("tick done",
			zap.Int("due", res.Due), zap.Int("sent", res.Sent),
			zap.Int("skipped", res.Skipped), zap.Int("failed", res.Failed))
	}
	return res
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (s *Scheduler) process(ctx context.Context, log *zap.Logger, ev domain.Event) outcome {
	log = log.With(zap.Int64("event_id", ev.ID), zap.Int64("user_id", ev.OwnerID))
	result := outcomeSent

	active, err := s.ownerActive(ctx, ev.OwnerID)
	switch {
	case err != nil:
		log.Error("GetUser failed", zap.Error(err))
		result = outcomeFailed
	case !active:
		result = outcomeSkipped
	default:
		// Delivery failures still advance the event so it cannot get stuck
		// on a minute that will never match again.
		if err := s.sender.SendMessage(ev.OwnerID, ReminderText(ev)); err != nil {
			log.Error("send failed", zap.Error(err))
			result = outcomeFailed
		}
	}

	if err := s.advance(ctx, ev); err != nil {
		log.Error("advance failed", zap.Error(err))
		return outcomeFailed
	}
	return result
}

func (s *Scheduler) ownerActive(ctx context.Context, userID int64) (bool, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.Active, nil
}

// advance moves a recurring event to its next due time, or retires a one-shot event.
func (s *Scheduler) advance(ctx context.Context, ev domain.Event) error {
	if !ev.Recurrence.Recurring() {
		return s.repo.MarkDelivered(ctx, ev.ID)
	}
	next, ok, err := domain.NextDue(ev.DueAt, ev.Recurrence)
	if err != nil {
		return err
	}
	if !ok {
		return s.repo.MarkDelivered(ctx, ev.ID)
	}
	return s.repo.SetDue(ctx, ev.ID, next)
}

// ReminderText is the notification body for ev.
func ReminderText(ev domain.Event) string {
	return fmt.Sprintf("⏰ Reminder: %s!", ev.Name)
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
