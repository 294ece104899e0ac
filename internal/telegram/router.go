package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/conversation"
	"github.com/ykvlv/event-reminder-bot/internal/store"
)

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Router wires Telegram updates to the conversation engine and the listing handlers.
// Updates of one chat are handled in arrival order; chats run in parallel.
type Router struct {
	bot     BotAPI
	log     *zap.Logger
	repo    store.Repo
	engine  *conversation.Engine
	serial  *conversation.Serial
	loc     *time.Location
	now     func() time.Time
	adminID int64
}

// Option configures a Router.
type Option func(*Router)

// WithLocation sets the zone of the naive local clock.
func WithLocation(loc *time.Location) Option { return func(r *Router) { r.loc = loc } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(r *Router) { r.now = now } }

// WithAdmin enables /stats for the given user id. Zero disables it.
func WithAdmin(id int64) Option { return func(r *Router) { r.adminID = id } }

// NewRouter creates a new Telegram router with its own conversation engine.
func NewRouter(bot BotAPI, log *zap.Logger, repo store.Repo, states conversation.StateStore, opts ...Option) *Router {
	r := &Router{
		bot:    bot,
		log:    log,
		repo:   repo,
		serial: conversation.NewSerial(),
		loc:    time.Local,
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	r.engine = conversation.New(repo, states, r, log,
		conversation.WithLocation(r.loc),
		conversation.WithClock(r.now),
	)
	return r
}

// HandleUpdate queues a single update behind earlier updates of the same chat.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	chatID, ok := updateChat(upd)
	if !ok {
		return
	}
	r.serial.Submit(chatID, func() { r.route(ctx, upd) })
}

// Wait blocks until every queued update has been handled.
func (r *Router) Wait() { r.serial.Wait() }

func updateChat(upd tgbotapi.Update) (int64, bool) {
	switch {
	case upd.Message != nil && upd.Message.Chat != nil:
		return upd.Message.Chat.ID, true
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil && upd.CallbackQuery.Message.Chat != nil:
		return upd.CallbackQuery.Message.Chat.ID, true
	}
	return 0, false
}

// route dispatches an update to the appropriate handler.
func (r *Router) route(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		chatID := msg.Chat.ID
		text := strings.TrimSpace(msg.Text)

		switch command(text) {
		case "/start":
			r.handleStart(ctx, msg)
			return
		case "/stats":
			r.handleStats(ctx, chatID, msg.From)
			return
		case "/export":
			r.handleExport(ctx, chatID)
			return
		}

		switch text {
		case btnAddEvent:
			r.engine.StartCreate(ctx, chatID)
		case btnMyEvents:
			r.showPage(ctx, chatID, 0, 0)
		case btnByCategory:
			r.handleCategories(ctx, chatID)
		case btnDelete:
			r.engine.StartDelete(ctx, chatID)
		case btnDisable:
			r.engine.StartDisable(ctx, chatID)
		default:
			// Raw text, not trimmed: names are taken verbatim.
			if !r.engine.HandleText(ctx, chatID, msg.Text) {
				r.log.Debug("text outside of any flow ignored", zap.Int64("user_id", chatID))
			}
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, upd.CallbackQuery)
	}
}

// command returns the leading /command of text without a @botname suffix.
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := strings.Fields(text)[0]
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Prompt renders a conversation step. This makes Router satisfy conversation.Messenger.
func (r *Router) Prompt(_ context.Context, userID int64, p conversation.Prompt) error {
	msg := tgbotapi.NewMessage(userID, "")
	switch p.Kind {
	case conversation.PromptEventName:
		msg.Text = askNameText
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	case conversation.PromptDate:
		msg.Text = askDateText
		msg.ReplyMarkup = calendarKeyboard(p.Year, p.Month)
	case conversation.PromptTime:
		msg.Text = askTimeText
		msg.ReplyMarkup = timeKeyboard()
	case conversation.PromptRecurrence:
		msg.Text = askRecurText
		msg.ReplyMarkup = recurrenceKeyboard()
	case conversation.PromptInvalidRecurrence:
		msg.Text = badRecurText
	case conversation.PromptCategory:
		msg.Text = askCategoryText
		msg.ReplyMarkup = categoryKeyboard(p.Categories)
	case conversation.PromptNewCategoryName:
		msg.Text = askNewCatText
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	case conversation.PromptEventCreated:
		msg.Text = createdText(*p.Event)
		msg.ReplyMarkup = mainMenuKeyboard()
	case conversation.PromptDeleteID:
		msg.Text = askDeleteText
	case conversation.PromptDeleteInvalid:
		msg.Text = badDeleteText
	case conversation.PromptDeleteNotFound:
		msg.Text = notFoundText
	case conversation.PromptDeleted:
		msg.Text = deletedText
	case conversation.PromptDisableChoice:
		msg.Text = askDisableText
		msg.ReplyMarkup = disableKeyboard()
	case conversation.PromptDisabled:
		msg.Text = disabledTmpText
		if p.Permanent {
			msg.Text = disabledPermText
		}
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	case conversation.PromptDisableCancelled:
		msg.Text = cancelledText
		msg.ReplyMarkup = mainMenuKeyboard()
	default:
		msg.Text = failedText
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := r.bot.Send(msg)
	return err
}
