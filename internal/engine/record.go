package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// MonthDay identifies a calendar day independently of any year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// MonthDayOf extracts the month and day of t in t's own location.
func MonthDayOf(t time.Time) MonthDay {
	return MonthDay{Month: t.Month(), Day: t.Day()}
}

// Key returns the canonical "DD-MM" index key.
func (md MonthDay) Key() string {
	return fmt.Sprintf("%02d%s%02d", md.Day, config.DateSeparator, int(md.Month))
}

// String implements fmt.Stringer.
func (md MonthDay) String() string {
	return md.Key()
}

// ParseMonthDay parses a "D-M" or "D-M-YYYY" value. Any year is ignored;
// the combination is validated against the leap placeholder year so that
// 29-02 is accepted and 30-02 is not.
func ParseMonthDay(value string) (MonthDay, error) {
	parts := strings.Split(strings.TrimSpace(value), config.DateSeparator)
	if len(parts) < 2 || len(parts) > 3 {
		return MonthDay{}, fmt.Errorf("%s: %q", config.ErrDateParse, value)
	}
	if len(parts) == 3 {
		if _, err := strconv.Atoi(strings.TrimSpace(parts[2])); err != nil {
			return MonthDay{}, fmt.Errorf("%s: %q", config.ErrDateParse, value)
		}
	}

	anchored := fmt.Sprintf(config.FormatDayMonthYear,
		strings.TrimSpace(parts[0]),
		strings.TrimSpace(parts[1]),
		config.DefaultLeapYear,
	)
	t, err := time.Parse(config.LayoutDayMonthYear, anchored)
	if err != nil {
		return MonthDay{}, fmt.Errorf("%s: %w", config.ErrDateParse, err)
	}
	return MonthDayOf(t), nil
}

// BirthdayRecord is one parsed entry of the birthday source.
type BirthdayRecord struct {
	// Name is the trimmed display name, never empty.
	Name string

	// Handle is an optional contact handle (e.g. a Telegram username).
	// An empty string means absent.
	Handle string

	// MonthDay is the year-free date used as index key.
	MonthDay MonthDay

	// OccursOn anchors MonthDay to the placeholder year. It only serves
	// as a stable sort key and never carries age information.
	OccursOn time.Time
}

// NewRecord builds a record, rejecting empty names.
func NewRecord(name, handle string, md MonthDay) (BirthdayRecord, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return BirthdayRecord{}, false
	}
	return BirthdayRecord{
		Name:     name,
		Handle:   strings.TrimSpace(handle),
		MonthDay: md,
		OccursOn: time.Date(config.DefaultLeapYear, md.Month, md.Day, 0, 0, 0, 0, time.UTC),
	}, true
}

// HasHandle reports whether the record carries a handle.
func (r BirthdayRecord) HasHandle() bool {
	return r.Handle != ""
}

// Label renders "<name>" or "<name> (<handle>)".
func (r BirthdayRecord) Label() string {
	if r.HasHandle() {
		return fmt.Sprintf(config.FormatEntryHandle, r.Name, r.Handle)
	}
	return r.Name
}

// MonthGroup is a run of consecutive records sharing one calendar month.
type MonthGroup struct {
	Month   time.Month
	Records []BirthdayRecord
}
