// Package timedelta implements the time_delta tool, which reports the
// distance between two dates.
package timedelta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/YunjiaXi/InfoDeepSeek/pkg/errors"
	"github.com/YunjiaXi/InfoDeepSeek/pkg/tools"
)

// Delta is a calendar difference between two dates.
type Delta struct {
	Days   int
	Years  int
	Months int
	// RemDays is what is left after whole years and months.
	RemDays int
	// Negative is set when the end date precedes the start date.
	Negative bool
}

// Tool is the time_delta tool.
type Tool struct {
	now func() time.Time
}

// New returns the tool. now resolves the literal "now" and "today";
// nil uses time.Now.
func New(now func() time.Time) *Tool {
	if now == nil {
		now = time.Now
	}
	return &Tool{now: now}
}

func (t *Tool) Spec() tools.Spec {
	return tools.Spec{
		Name:        tools.CommandTimeDelta,
		LocalName:   "时间差",
		Description: "Time Delta: compute the time between two dates",
		Params: []tools.Param{
			{Name: "start_date", Type: "string", Description: "the earlier date, e.g. 2019-03-01", Required: true},
			{Name: "end_date", Type: "string", Description: "the later date, or \"now\"", Required: true},
		},
	}
}

func (t *Tool) Call(_ context.Context, args map[string]string) (tools.Output, error) {
	start, err := t.Parse(tools.Arg(args, "start_date", "start", "from"))
	if err != nil {
		return tools.Output{}, err
	}
	end, err := t.Parse(tools.Arg(args, "end_date", "end", "to"))
	if err != nil {
		return tools.Output{}, err
	}
	d := Between(start, end)
	sign := ""
	if d.Negative {
		sign = "-"
	}
	answer := fmt.Sprintf("From %s to %s: %s%d days (%s%d years, %d months, %d days)",
		start.Format("2006-01-02"), end.Format("2006-01-02"),
		sign, d.Days, sign, d.Years, d.Months, d.RemDays)
	return tools.Text(answer), nil
}

// Parse reads a free-form date. "now" and "today" resolve to the tool clock.
func (t *Tool) Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return time.Time{}, errors.New(errors.CodeInvalidInput, "date is required", nil)
	case "now", "today", "现在", "今天":
		return t.now(), nil
	}
	ts, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, errors.New(errors.CodeInvalidInput, "unrecognised date", err).WithContext("date", s)
	}
	return ts, nil
}

// Between returns the calendar distance from start to end, compared by date
// in the start location.
func Between(start, end time.Time) Delta {
	start = midnight(start, start.Location())
	end = midnight(end, start.Location())
	var d Delta
	if end.Before(start) {
		start, end = end, start
		d.Negative = true
	}
	d.Days = days(start, end)

	total := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	anchor := addMonths(start, total)
	if anchor.After(end) {
		total--
		anchor = addMonths(start, total)
	}
	d.Years, d.Months = total/12, total%12
	d.RemDays = days(anchor, end)
	return d
}

// addMonths moves t by n months, clamping to the last day of the month.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

func days(from, to time.Time) int {
	return int(to.Sub(from).Hours()/24 + 0.5)
}

func midnight(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
