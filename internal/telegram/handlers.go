package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
	"github.com/ykvlv/event-reminder-bot/internal/ics"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	if _, err := r.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("user_id", chatID))
	}
}

func (r *Router) send(c tgbotapi.Chattable, chatID int64) {
	if _, err := r.bot.Send(c); err != nil {
		r.log.Warn("send failed", zap.Error(err), zap.Int64("user_id", chatID))
	}
}

func (r *Router) answerCallback(id, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		r.log.Debug("answer callback failed", zap.Error(err))
	}
}

// --- Core commands ---

// handleStart registers the user, or refreshes their profile and reactivates them.
func (r *Router) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	u := &domain.User{ID: chatID, RegisteredAt: r.now()}
	if from := msg.From; from != nil {
		u.Username, u.FirstName, u.LastName = from.UserName, from.FirstName, from.LastName
	}
	if err := r.repo.UpsertUser(ctx, u); err != nil {
		r.log.Error("UpsertUser failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	r.log.Info("user started", zap.Int64("user_id", chatID))

	out := tgbotapi.NewMessage(chatID, startText)
	out.ReplyMarkup = mainMenuKeyboard()
	r.send(out, chatID)
}

func (r *Router) handleStats(ctx context.Context, chatID int64, from *tgbotapi.User) {
	if r.adminID == 0 || from == nil || from.ID != r.adminID {
		r.sendText(chatID, noAccessText)
		return
	}
	st, err := r.repo.Stats(ctx)
	if err != nil {
		r.log.Error("Stats failed", zap.Error(err))
		r.sendText(chatID, failedText)
		return
	}
	r.sendText(chatID, statsText(st))
}

// handleExport sends every event of the user as an .ics attachment.
func (r *Router) handleExport(ctx context.Context, chatID int64) {
	events, err := r.repo.ListEvents(ctx, chatID)
	if err != nil {
		r.log.Error("ListEvents failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	if len(events) == 0 {
		r.sendText(chatID, noEventsText)
		return
	}
	data, err := ics.Export(events, r.loc, r.now())
	if err != nil {
		r.log.Error("ics export failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: "events.ics", Bytes: data})
	r.send(doc, chatID)
}

// --- Listing ---

// showPage lists upcoming events. A non-zero editID replaces that message
// instead of sending a new one.
func (r *Router) showPage(ctx context.Context, chatID int64, n, editID int) {
	from := domain.NowDue(r.now(), r.loc)
	total, err := r.repo.CountUpcoming(ctx, chatID, from)
	if err != nil {
		r.log.Error("CountUpcoming failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	if total == 0 {
		r.sendText(chatID, noEventsText)
		return
	}
	// Events may have fired since the buttons were drawn.
	if last := domain.PageCount(total, domain.PageSize) - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}

	events, err := r.repo.ListUpcoming(ctx, chatID, from, domain.PageSize, domain.Offset(n))
	if err != nil {
		r.log.Error("ListUpcoming failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	page := domain.NewPage(n, total, events)

	if editID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, editID, pageText(page))
		edit.ReplyMarkup = pageKeyboard(page)
		r.send(edit, chatID)
		return
	}
	msg := tgbotapi.NewMessage(chatID, pageText(page))
	if kb := pageKeyboard(page); kb != nil {
		msg.ReplyMarkup = *kb
	}
	r.send(msg, chatID)
}

func (r *Router) handleCategories(ctx context.Context, chatID int64) {
	cats, err := r.repo.ListCategories(ctx, chatID)
	if err != nil {
		r.log.Error("ListCategories failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	if len(cats) == 0 {
		r.sendText(chatID, noCategoriesText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, askCategoryText)
	msg.ReplyMarkup = categoryListKeyboard(cats)
	r.send(msg, chatID)
}

func (r *Router) handleCategoryEvents(ctx context.Context, chatID, categoryID int64) {
	cat, err := r.repo.GetCategory(ctx, categoryID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !cat.IsGlobal() && cat.OwnerID != chatID) {
		r.sendText(chatID, staleButtonText)
		return
	}
	if err != nil {
		r.log.Error("GetCategory failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	events, err := r.repo.ListByCategory(ctx, chatID, cat.Name)
	if err != nil {
		r.log.Error("ListByCategory failed", zap.Error(err), zap.Int64("user_id", chatID))
		r.sendText(chatID, failedText)
		return
	}
	r.sendText(chatID, categoryEventsText(cat.Name, events))
}

// --- Inline buttons ---

func (r *Router) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID

	cb, err := domain.ParseCallback(cq.Data)
	if err != nil {
		r.log.Debug("unknown callback ignored", zap.String("data", cq.Data), zap.Int64("user_id", chatID))
		r.answerCallback(cq.ID, "")
		return
	}

	notice := ""
	switch cb.Kind {
	case domain.CallbackIgnore:

	case domain.CallbackPrevMonth, domain.CallbackNextMonth:
		delta := -1
		if cb.Kind == domain.CallbackNextMonth {
			delta = 1
		}
		y, m := domain.ShiftMonth(cb.Year, cb.Month, delta)
		r.send(tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, calendarKeyboard(y, m)), chatID)

	case domain.CallbackDate:
		d, err := domain.NewDate(cb.Year, cb.Month, cb.Day)
		if err != nil || !r.engine.HandleDate(ctx, chatID, d) {
			notice = staleButtonText
		}

	case domain.CallbackTime:
		if !r.engine.HandleTime(ctx, chatID, cb.Hour, cb.Minute) {
			notice = staleButtonText
		}

	case domain.CallbackPage:
		r.showPage(ctx, chatID, cb.Page, msgID)

	case domain.CallbackCategory:
		r.handleCategoryEvents(ctx, chatID, cb.CategoryID)
	}
	r.answerCallback(cq.ID, notice)
}
