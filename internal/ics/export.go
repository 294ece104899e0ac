// Package ics renders a user's events as an iCalendar document.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

const (
	productID = "-//ykvlv//event-reminder-bot//EN"
	uidDomain = "event-reminder-bot"
)

// Export builds a VCALENDAR with one VEVENT per event, recurring ones with an
// RRULE. Times are written in UTC.
func Export(events []domain.Event, loc *time.Location, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Reminders")
	cal.SetXWRTimezone(loc.String())

	for _, ev := range events {
		start, err := ev.Due(loc)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}

		ve := cal.AddEvent(fmt.Sprintf("event-%d@%s", ev.ID, uidDomain))
		ve.SetDtStampTime(now.UTC())
		ve.SetStartAt(start.UTC())
		ve.SetEndAt(start.Add(domain.SlotStep).UTC())
		ve.SetSummary(ev.Name)
		if c := ev.CategoryName(); c != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, c)
		}

		rule, err := RuleFor(ev.Recurrence, start)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.ID, err)
		}
		if rule != "" {
			ve.AddRrule(rule)
		}

		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger("PT0M")
	}

	return []byte(cal.Serialize()), nil
}

// RuleFor returns the RRULE value for r anchored at start, or "" for RecurNone.
// Month-end days clamp like domain.NextDueAt. The stored due date keeps the
// clamped day afterwards while the rule returns to the original one, so the two
// agree only up to the first clamped occurrence.
func RuleFor(r domain.Recurrence, start time.Time) (string, error) {
	opt, ok, err := ruleOption(r, start)
	if err != nil || !ok {
		return "", err
	}
	if _, err := rrule.NewRRule(opt); err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}
	return opt.RRuleString(), nil
}

func ruleOption(r domain.Recurrence, start time.Time) (rrule.ROption, bool, error) {
	opt := rrule.ROption{Interval: 1}
	switch r {
	case domain.RecurNone:
		return opt, false, nil
	case domain.RecurDaily:
		opt.Freq = rrule.DAILY
	case domain.RecurWeekly:
		opt.Freq = rrule.WEEKLY
	case domain.RecurBiweekly:
		opt.Freq = rrule.WEEKLY
		opt.Interval = 2
	case domain.RecurMonthly:
		opt.Freq = rrule.MONTHLY
		if d := start.Day(); d > 28 {
			// last of {28..d} in each month: the day itself, or the month end when shorter
			opt.Bymonthday = daysFrom28(d)
			opt.Bysetpos = []int{-1}
		}
	case domain.RecurYearly:
		opt.Freq = rrule.YEARLY
		if start.Month() == time.February && start.Day() == 29 {
			opt.Bymonth = []int{2}
			opt.Bymonthday = []int{28, 29}
			opt.Bysetpos = []int{-1}
		}
	default:
		return opt, false, domain.ErrInvalidRecurrence
	}
	return opt, true, nil
}

func daysFrom28(d int) []int {
	out := make([]int, 0, d-27)
	for i := 28; i <= d; i++ {
		out = append(out, i)
	}
	return out
}
