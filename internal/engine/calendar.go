package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

var uidNamespace = uuid.MustParse(config.UIDNamespace)

// Calendar renders records as an iCalendar feed of yearly all-day events.
type Calendar struct {
	Clock Clock

	// FormatSummary allows callers to inject localized event titles.
	FormatSummary func(r BirthdayRecord) string
}

// Feed is a rendered calendar tied to the source state it was built from.
type Feed struct {
	ICS     []byte
	Entries int

	// Modified is the modification time of the source file, so the feed
	// only looks newer to HTTP clients when the birthdays actually changed.
	Modified time.Time
}

// Build renders records into a Feed stamped with the source modification time.
func (c *Calendar) Build(records []BirthdayRecord, modified time.Time) (Feed, error) {
	data, err := c.Render(records)
	if err != nil {
		return Feed{}, err
	}
	return Feed{ICS: data, Entries: len(records), Modified: modified}, nil
}

// Render encodes one recurring event per record.
func (c *Calendar) Render(records []BirthdayRecord) ([]byte, error) {
	if len(records) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	clock := c.Clock
	if clock == nil {
		clock = RealClock{}
	}
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(clock.Now().UTC())

	// Identical rows would collide on UID; the occurrence counter keeps them apart.
	seen := make(map[string]int, len(records))
	for _, r := range records {
		input := fmt.Sprintf(config.FormatHashInput, r.Name, r.Handle, r.MonthDay.Key())
		seen[input]++
		if n := seen[input]; n > 1 {
			input = fmt.Sprintf("%s#%d", input, n)
		}
		uid := uuid.NewSHA1(uidNamespace, []byte(input)).String()

		summary := fmt.Sprintf(config.FallbackSummary, r.Label())
		if c.FormatSummary != nil {
			summary = c.FormatSummary(r)
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, uid, config.ICalDomain))
		event.Props.SetText(config.PropSummary, summary)
		event.Props.Set(dtStampProp)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(r.OccursOn)
		event.Props.Set(dtStartProp)

		// Set RRULE manually to avoid a "VALUE=TEXT" param.
		rruleProp := ical.NewProp(config.PropRRule)
		rruleProp.Value = config.ICalRRule
		event.Props.Set(rruleProp)

		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}

	slog.Debug(config.MsgCalendarRendered,
		config.LogKeyComponent, config.CompCalendar,
		config.LogKeyRecords, len(records),
		config.LogKeySizeBytes, buf.Len(),
	)
	return buf.Bytes(), nil
}
