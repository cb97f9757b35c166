package postprocess

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Placeholder tokens recognised by the Expander. Matching is exact and
// case-sensitive; the braces are part of the token.
const (
	TokenTodayShort         = "{today-short}"
	TokenTomorrowShort      = "{tomorrow-short}"
	TokenTodayLong          = "{today-long}"
	TokenTomorrowLong       = "{tomorrow-long}"
	TokenOffset2WithWeekday = "{offset-2-with-weekday}"
	TokenOffset3WithWeekday = "{offset-3-with-weekday}"
	TokenTimestamp          = "{timestamp}"
	TokenUserName           = "{user-name}"
	TokenTodayShortJA       = "{今日:MM/DD}"
	TokenTomorrowShortJA    = "{明日:MM/DD}"
	TokenTodayLongJA        = "{今日:M月D日}"
	TokenTomorrowLongJA     = "{明日:M月D日}"
	TokenTimestampJA        = "{タイムスタンプ}"
	TokenUserNameJA         = "{名前}"
)

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Expander rewrites snippet templates into their paste-time form
type Expander struct {
	now      func() time.Time
	userName func() string
}

// NewExpander creates an expander. userName is consulted on every call so
// a changed display name takes effect without a restart; nil means empty.
func NewExpander(userName func() string) *Expander {
	return &Expander{
		now:      time.Now,
		userName: userName,
	}
}

// Expand replaces every known token in text. All date tokens derive from
// a single clock reading, and replacement is single-pass so substituted
// values are never expanded again.
func (e *Expander) Expand(text string) string {
	if !strings.Contains(text, "{") {
		return text
	}
	return e.replacer(e.now()).Replace(text)
}

// ExpandAt is Expand with an explicit clock reading
func (e *Expander) ExpandAt(text string, now time.Time) string {
	return e.replacer(now).Replace(text)
}

func (e *Expander) replacer(now time.Time) *strings.Replacer {
	today := civilDate(now)
	tomorrow := today.AddDate(0, 0, 1)
	offset2 := skipFirstOfMonth(today.AddDate(0, 0, 2))
	offset3 := skipFirstOfMonth(offset2.AddDate(0, 0, 1))

	name := ""
	if e.userName != nil {
		name = e.userName()
	}

	return strings.NewReplacer(
		TokenTodayShort, shortDate(today),
		TokenTodayShortJA, shortDate(today),
		TokenTomorrowShort, shortDate(tomorrow),
		TokenTomorrowShortJA, shortDate(tomorrow),
		TokenTodayLong, longDate(today),
		TokenTodayLongJA, longDate(today),
		TokenTomorrowLong, longDate(tomorrow),
		TokenTomorrowLongJA, longDate(tomorrow),
		TokenOffset2WithWeekday, weekdayDate(offset2),
		TokenOffset3WithWeekday, weekdayDate(offset3),
		TokenTimestamp, now.Format("2006/01/02 15:04:05"),
		TokenTimestampJA, now.Format("2006/01/02 15:04:05"),
		TokenUserName, name,
		TokenUserNameJA, name,
	)
}

// VariableProcessor adapts the expander to a pipeline stage
func (e *Expander) VariableProcessor() Processor {
	return func(ctx context.Context, text string) (string, error) {
		return e.Expand(text), nil
	}
}

// civilDate pins t to local noon so calendar arithmetic never crosses a
// day boundary on DST transitions.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

func skipFirstOfMonth(t time.Time) time.Time {
	if t.Day() == 1 {
		return t.AddDate(0, 0, 1)
	}
	return t
}

func shortDate(t time.Time) string {
	return t.Format("01/02")
}

func longDate(t time.Time) string {
	return fmt.Sprintf("%d月%d日", t.Month(), t.Day())
}

func weekdayDate(t time.Time) string {
	return fmt.Sprintf("%s（%s）", longDate(t), weekdays[t.Weekday()])
}
