package telegram

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ykvlv/event-reminder-bot/internal/conversation"
	"github.com/ykvlv/event-reminder-bot/internal/domain"
	"github.com/ykvlv/event-reminder-bot/internal/store"
)

// fakeBot records everything the router sends.
type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeBot) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBot) last() tgbotapi.MessageConfig {
	msgs := f.messages()
	if len(msgs) == 0 {
		return tgbotapi.MessageConfig{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeBot) callbackAnswers() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.sent {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

func (f *fakeBot) all() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]tgbotapi.Chattable(nil), f.sent...)
}

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	bot    *fakeBot
	repo   *store.MemoryRepo
	router *Router
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{bot: &fakeBot{}, repo: store.NewMemoryRepo()}
	opts = append([]Option{
		WithLocation(time.UTC),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	h.router = NewRouter(h.bot, zap.NewNop(), h.repo, conversation.NewMemoryStateStore(), opts...)
	return h
}

func (h *harness) text(chatID int64, text string) {
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, UserName: "alice", FirstName: "Alice", LastName: "Liddell"},
		Text: text,
	}})
	h.router.Wait()
}

func (h *harness) press(chatID int64, msgID int, data string) {
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-" + data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: msgID, Chat: &tgbotapi.Chat{ID: chatID}},
		Data:    data,
	}})
	h.router.Wait()
}

func buttonData(b tgbotapi.InlineKeyboardButton) string {
	if b.CallbackData == nil {
		return ""
	}
	return *b.CallbackData
}

func TestStart_RegistersAndShowsMenu(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.repo.UpsertUser(context.Background(), &domain.User{ID: 1}))
	require.NoError(t, h.repo.SetActive(context.Background(), 1, false))

	h.text(1, "/start")

	u, err := h.repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, u.Active)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "Liddell", u.LastName)

	last := h.bot.last()
	assert.Equal(t, startText, last.Text)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, last.ReplyMarkup)
}

func TestCreateFlow_OverUpdates(t *testing.T) {
	h := newHarness(t)

	h.text(1, btnAddEvent)
	assert.Equal(t, askNameText, h.bot.last().Text)

	h.text(1, "Meeting")
	cal, ok := h.bot.last().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "March 2025", cal.InlineKeyboard[0][0].Text)

	h.press(1, 10, domain.DatePayload(2025, 3, 15))
	assert.Equal(t, askTimeText, h.bot.last().Text)

	h.press(1, 11, domain.TimePayload(14, 30))
	assert.Equal(t, askRecurText, h.bot.last().Text)

	h.text(1, domain.RecurWeekly.Label())
	assert.Equal(t, askCategoryText, h.bot.last().Text)

	h.text(1, conversation.NoCategoryLabel)

	events, err := h.repo.ListEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Meeting", events[0].Name)
	assert.Equal(t, "2025-03-15 14:30", events[0].DueAt)
	assert.Equal(t, domain.RecurWeekly, events[0].Recurrence)
	assert.Nil(t, events[0].Category)

	last := h.bot.last()
	assert.Equal(t, createdText(events[0]), last.Text)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, last.ReplyMarkup)
}

func TestCalendarNavigation_EditsKeyboardOnly(t *testing.T) {
	h := newHarness(t)

	h.press(1, 5, domain.PrevPayload(2025, 1))

	var edit *tgbotapi.EditMessageReplyMarkupConfig
	for _, c := range h.bot.all() {
		if e, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit)
	assert.Equal(t, 5, edit.MessageID)
	assert.Equal(t, "December 2024", edit.ReplyMarkup.InlineKeyboard[0][0].Text)

	sess, err := h.router.engine.Session(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, sess.IsZero())
}

func TestStaleButtons(t *testing.T) {
	h := newHarness(t)

	h.press(1, 5, domain.DatePayload(2025, 3, 15))
	h.press(1, 6, domain.TimePayload(9, 0))
	h.press(1, 7, "bogus_payload")

	answers := h.bot.callbackAnswers()
	require.Len(t, answers, 3)
	assert.Equal(t, staleButtonText, answers[0].Text)
	assert.Equal(t, staleButtonText, answers[1].Text)
	assert.Empty(t, answers[2].Text)
	assert.Empty(t, h.bot.messages())
}

func TestMyEvents_Paginates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.repo.CreateEvent(ctx, &domain.Event{OwnerID: 1, Name: "past", DueAt: "2025-03-01 10:00"}))
	for i := 1; i <= 7; i++ {
		require.NoError(t, h.repo.CreateEvent(ctx, &domain.Event{
			OwnerID:    1,
			Name:       "e" + strconv.Itoa(i),
			DueAt:      time.Date(2025, 4, i, 9, 0, 0, 0, time.UTC).Format(domain.DueLayout),
			Recurrence: domain.RecurNone,
		}))
	}

	h.text(1, btnMyEvents)
	first := h.bot.last()
	assert.Contains(t, first.Text, "page 1 of 2")
	assert.Contains(t, first.Text, "e1")
	assert.NotContains(t, first.Text, "past")
	kb, ok := first.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 1)
	assert.Equal(t, domain.PagePayload(1), buttonData(kb.InlineKeyboard[0][0]))

	h.press(1, 42, domain.PagePayload(1))
	var edit *tgbotapi.EditMessageTextConfig
	for _, c := range h.bot.all() {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	require.NotNil(t, edit)
	assert.Equal(t, 42, edit.MessageID)
	assert.Contains(t, edit.Text, "page 2 of 2")
	assert.Contains(t, edit.Text, "e7")
	require.NotNil(t, edit.ReplyMarkup)
	require.Len(t, edit.ReplyMarkup.InlineKeyboard[0], 1)
	assert.Equal(t, domain.PagePayload(0), buttonData(edit.ReplyMarkup.InlineKeyboard[0][0]))
}

func TestMyEvents_Empty(t *testing.T) {
	h := newHarness(t)
	h.text(1, btnMyEvents)
	assert.Equal(t, noEventsText, h.bot.last().Text)
}

func TestEventsByCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	global, err := h.repo.CreateCategory(ctx, domain.GlobalOwnerID, "Birthdays")
	require.NoError(t, err)
	foreign, err := h.repo.CreateCategory(ctx, 2, "Secret")
	require.NoError(t, err)
	name := "Birthdays"
	require.NoError(t, h.repo.CreateEvent(ctx, &domain.Event{OwnerID: 1, Name: "Mom", DueAt: "2025-05-01 09:00", Recurrence: domain.RecurYearly, Category: &name}))
	require.NoError(t, h.repo.CreateEvent(ctx, &domain.Event{OwnerID: 2, Name: "Not mine", DueAt: "2025-05-01 09:00", Recurrence: domain.RecurNone, Category: &name}))

	h.text(1, btnByCategory)
	kb, ok := h.bot.last().ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryPayload(global.ID), buttonData(kb.InlineKeyboard[0][0]))

	h.press(1, 3, domain.CategoryPayload(global.ID))
	assert.Contains(t, h.bot.last().Text, "Mom")
	assert.NotContains(t, h.bot.last().Text, "Not mine")

	h.press(1, 3, domain.CategoryPayload(foreign.ID))
	assert.Equal(t, staleButtonText, h.bot.last().Text)
}

func TestDeleteFlow(t *testing.T) {
	h := newHarness(t)
	ev := &domain.Event{OwnerID: 1, Name: "Gone", DueAt: "2025-05-01 09:00", Recurrence: domain.RecurNone}
	require.NoError(t, h.repo.CreateEvent(context.Background(), ev))

	h.text(1, btnDelete)
	assert.Equal(t, askDeleteText, h.bot.last().Text)
	h.text(1, strconv.FormatInt(ev.ID, 10))
	assert.Equal(t, deletedText, h.bot.last().Text)

	h.text(1, btnDelete)
	h.text(1, strconv.FormatInt(ev.ID, 10))
	assert.Equal(t, notFoundText, h.bot.last().Text)
}

func TestDisableFlow(t *testing.T) {
	h := newHarness(t)
	h.text(1, "/start")

	h.text(1, btnDisable)
	assert.Equal(t, askDisableText, h.bot.last().Text)
	h.text(1, conversation.DisablePermanentLabel)
	assert.Equal(t, disabledPermText, h.bot.last().Text)

	u, err := h.repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, u.Active)

	h.text(1, "/start@reminder_bot")
	u, err = h.repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, u.Active)
}

func TestStats_AdminOnly(t *testing.T) {
	h := newHarness(t, WithAdmin(99))
	h.text(1, "/start")

	h.text(1, "/stats")
	assert.Equal(t, noAccessText, h.bot.last().Text)

	h.text(99, "/stats")
	assert.Contains(t, h.bot.last().Text, "Users: 1")
}

func TestExport_SendsDocument(t *testing.T) {
	h := newHarness(t)
	h.text(1, "/export")
	assert.Equal(t, noEventsText, h.bot.last().Text)

	require.NoError(t, h.repo.CreateEvent(context.Background(), &domain.Event{
		OwnerID: 1, Name: "Rent", DueAt: "2025-04-01 10:00", Recurrence: domain.RecurMonthly,
	}))
	h.text(1, "/export")

	var doc *tgbotapi.DocumentConfig
	for _, c := range h.bot.all() {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	require.NotNil(t, doc)
	file, ok := doc.File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "events.ics", file.Name)
	assert.Contains(t, string(file.Bytes), "SUMMARY:Rent")
}

func TestSendMessage(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.router.SendMessage(7, "⏰ Reminder: Rent!"))
	last := h.bot.last()
	assert.Equal(t, int64(7), last.ChatID)
	assert.Equal(t, "⏰ Reminder: Rent!", last.Text)
}

func TestUpdatesWithoutChatAreDropped(t *testing.T) {
	h := newHarness(t)
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{})
	h.router.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "inline", Data: "ignore"}})
	h.router.Wait()
	assert.Empty(t, h.bot.all())
}
