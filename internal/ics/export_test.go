package ics

import (
	"bytes"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

func TestExport(t *testing.T) {
	work := "Work"
	events := []domain.Event{
		{ID: 1, OwnerID: 7, Name: "Standup", DueAt: "2025-03-17 10:00", Recurrence: domain.RecurWeekly, Category: &work},
		{ID: 2, OwnerID: 7, Name: "Dentist", DueAt: "2025-03-20 15:30", Recurrence: domain.RecurNone},
	}
	msk := time.FixedZone("MSK", 3*60*60)

	out, err := Export(events, msk, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(bytes.NewReader(out))
	require.NoError(t, err)
	vevents := cal.Events()
	require.Len(t, vevents, 2)

	standup := vevents[0]
	assert.Equal(t, "event-1@event-reminder-bot", standup.Id())
	assert.Equal(t, "Standup", standup.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "20250317T070000Z", standup.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "Work", standup.GetProperty(ical.ComponentPropertyCategories).Value)
	require.NotNil(t, standup.GetProperty(ical.ComponentPropertyRrule))
	assert.Contains(t, standup.GetProperty(ical.ComponentPropertyRrule).Value, "FREQ=WEEKLY")

	dentist := vevents[1]
	assert.Nil(t, dentist.GetProperty(ical.ComponentPropertyRrule))
	assert.Nil(t, dentist.GetProperty(ical.ComponentPropertyCategories))
}

func TestExport_RejectsMalformedDue(t *testing.T) {
	_, err := Export([]domain.Event{{ID: 3, Name: "x", DueAt: "tomorrow"}}, time.UTC, time.Now())
	assert.Error(t, err)
}

// The exported rule must produce the same occurrences as the scheduler.
func TestRuleFor_MatchesNextDueAt(t *testing.T) {
	cases := []struct {
		r     domain.Recurrence
		start time.Time
		n     int // occurrences compared, up to the first clamp
	}{
		{domain.RecurDaily, time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC), 5},
		{domain.RecurWeekly, time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC), 5},
		{domain.RecurBiweekly, time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC), 5},
		{domain.RecurMonthly, time.Date(2025, 1, 15, 8, 0, 0, 0, time.UTC), 14},
		{domain.RecurMonthly, time.Date(2025, 1, 30, 8, 0, 0, 0, time.UTC), 2},
		{domain.RecurMonthly, time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC), 2},
		{domain.RecurMonthly, time.Date(2025, 3, 31, 8, 0, 0, 0, time.UTC), 2},
		{domain.RecurYearly, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), 2},
		{domain.RecurYearly, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), 4},
	}
	for _, tc := range cases {
		t.Run(string(tc.r)+"/"+tc.start.Format("01-02"), func(t *testing.T) {
			opt, ok, err := ruleOption(tc.r, tc.start)
			require.NoError(t, err)
			require.True(t, ok)
			opt.Dtstart = tc.start
			rule, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			want := make([]time.Time, 0, tc.n)
			cur := tc.start
			for len(want) < tc.n {
				want = append(want, cur)
				cur, _ = domain.NextDueAt(cur, tc.r)
			}
			got := rule.Between(tc.start, want[len(want)-1], true)
			assert.Equal(t, want, got)
		})
	}
}

func TestRuleFor_NoneAndInvalid(t *testing.T) {
	s, err := RuleFor(domain.RecurNone, time.Now())
	require.NoError(t, err)
	assert.Empty(t, s)

	_, err = RuleFor(domain.Recurrence("hourly"), time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidRecurrence)

	s, err = RuleFor(domain.RecurBiweekly, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, s, "INTERVAL=2")
}
