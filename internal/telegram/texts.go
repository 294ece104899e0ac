package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/event-reminder-bot/internal/conversation"
	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

// Main menu labels.
const (
	btnAddEvent   = "➕ Add event"
	btnMyEvents   = "📋 My events"
	btnByCategory = "🗂 Events by category"
	btnDelete     = "🗑 Delete event"
	btnDisable    = "🔕 Disable bot"
)

// UI texts in English
const (
	startText        = "👋 I am a bot for reminders about important events. Use the buttons below."
	failedText       = "Something went wrong. Please try again later."
	askNameText      = "Enter the event name:"
	askDateText      = "Choose the reminder date:"
	askTimeText      = "Choose the reminder time:"
	askRecurText     = "Choose how the event repeats:"
	badRecurText     = "Please choose one of the offered repeat options."
	askCategoryText  = "Choose a category:"
	askNewCatText    = "Enter the new category name:"
	askDeleteText    = "Enter the ID of the event you want to delete:"
	badDeleteText    = "An event ID is a number. Choose \"" + btnDelete + "\" to try again."
	notFoundText     = "No event with this ID was found."
	deletedText      = "Event deleted!"
	askDisableText   = "How do you want to disable the bot?"
	disabledTmpText  = "The bot is disabled for now. Send /start to turn it back on."
	disabledPermText = "The bot is disabled permanently. Thanks for using it!"
	cancelledText    = "Disabling cancelled."
	noEventsText     = "You have no saved events yet."
	noCategoriesText = "You have no categories yet."
	staleButtonText  = "This button is no longer active."
	noAccessText     = "You have no access to this command."
)

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// mainMenuKeyboard builds the persistent reply keyboard.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAddEvent),
			tgbotapi.NewKeyboardButton(btnMyEvents),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnByCategory),
			tgbotapi.NewKeyboardButton(btnDelete),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnDisable),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// singleColumnKeyboard puts every label on its own row.
func singleColumnKeyboard(labels ...string) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(l)))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

func recurrenceKeyboard() tgbotapi.ReplyKeyboardMarkup {
	labels := make([]string, 0, len(domain.Recurrences))
	for _, r := range domain.Recurrences {
		labels = append(labels, r.Label())
	}
	return singleColumnKeyboard(labels...)
}

// categoryKeyboard lists the choosable categories followed by the two sentinels.
func categoryKeyboard(cats []domain.Category) tgbotapi.ReplyKeyboardMarkup {
	seen := make(map[string]bool, len(cats))
	labels := make([]string, 0, len(cats)+2)
	for _, c := range cats {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		labels = append(labels, c.Name)
	}
	labels = append(labels, conversation.NewCategoryLabel, conversation.NoCategoryLabel)
	return singleColumnKeyboard(labels...)
}

func disableKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return singleColumnKeyboard(
		conversation.DisableTemporaryLabel,
		conversation.DisablePermanentLabel,
		conversation.DisableCancelLabel,
	)
}

func ignoreButton(text string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, domain.IgnorePayload)
}

// calendarKeyboard renders a month grid with Monday as the first weekday.
func calendarKeyboard(year, month int) tgbotapi.InlineKeyboardMarkup {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(ignoreButton(fmt.Sprintf("%s %d", first.Month(), year))),
	}

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdays {
		header = append(header, ignoreButton(d))
	}
	rows = append(rows, header)

	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < (int(first.Weekday())+6)%7; i++ {
		week = append(week, ignoreButton(" "))
	}
	for day := 1; day <= domain.DaysIn(year, first.Month()); day++ {
		week = append(week, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprint(day), domain.DatePayload(year, month, day)))
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, ignoreButton(" "))
		}
		rows = append(rows, week)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("<", domain.PrevPayload(year, month)),
		tgbotapi.NewInlineKeyboardButtonData(">", domain.NextPayload(year, month)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// timeKeyboard offers every half-hour slot, four per row.
func timeKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	step := int(domain.SlotStep / time.Minute)
	for m := 0; m < 24*60; m += step {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			domain.FormatMinutes(m), domain.TimePayload(m/60, m%60)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// pageKeyboard returns nil when the page has no neighbours.
func pageKeyboard(p domain.Page) *tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if p.HasPrev {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", domain.PagePayload(p.Number-1)))
	}
	if p.HasNext {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", domain.PagePayload(p.Number+1)))
	}
	if len(row) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(row)
	return &kb
}

// categoryListKeyboard lists categories two per row for browsing.
func categoryListKeyboard(cats []domain.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range cats {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Name, domain.CategoryPayload(c.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoryOrNone(ev domain.Event) string {
	if c := ev.CategoryName(); c != "" {
		return c
	}
	return conversation.NoCategoryLabel
}

func createdText(ev domain.Event) string {
	return fmt.Sprintf("✅ Event created!\n\n📌 Name: %s\n📅 Date and time: %s\n🔄 Repeat: %s\n📁 Category: %s",
		ev.Name, ev.DueAt, ev.Recurrence.Label(), categoryOrNone(ev))
}

func pageText(p domain.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your events (page %d of %d):\n", p.Number+1, domain.PageCount(p.Total, domain.PageSize))
	for _, ev := range p.Events {
		fmt.Fprintf(&b, "🆔 %d: %s (remind: %s, repeat: %s, category: %s)\n",
			ev.ID, ev.Name, ev.DueAt, ev.Recurrence.Label(), categoryOrNone(ev))
	}
	return b.String()
}

func categoryEventsText(category string, events []domain.Event) string {
	if len(events) == 0 {
		return fmt.Sprintf("No events in category '%s' yet.", category)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Events in category '%s':\n", category)
	for _, ev := range events {
		fmt.Fprintf(&b, "🆔 %d: %s (remind: %s, repeat: %s)\n", ev.ID, ev.Name, ev.DueAt, ev.Recurrence.Label())
	}
	return b.String()
}

func statsText(s domain.Stats) string {
	return fmt.Sprintf("📊 Statistics:\n• Users: %d\n• Active users: %d\n• Events: %d\n• Categories: %d",
		s.Users, s.ActiveUsers, s.Events, s.Categories)
}
