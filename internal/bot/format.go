package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// monthName returns the localized full month name.
func (b *Bot) monthName(m time.Month) string {
	return b.tr.MsgOr(config.TKeyMonthPrefix+strconv.Itoa(int(m)), nil, m.String())
}

// formatToday renders one "<name>" or "<name> (<handle>)" line per record.
func formatToday(records []engine.BirthdayRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, r.Label())
	}
	return strings.Join(lines, config.LineSeparator)
}

// formatNotification wraps each entry in the localized announcement line.
func (b *Bot) formatNotification(records []engine.BirthdayRecord) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		entry := r.Label()
		lines = append(lines, b.tr.MsgOr(config.TKeyNotifyLine,
			map[string]any{"Entry": entry},
			fmt.Sprintf(config.FallbackNotify, entry),
		))
	}
	return strings.Join(lines, config.LineSeparator)
}

// formatGroups renders the month-ordered listing. Every group opens with an
// empty line followed by the month header, then "<day>: <entry>" lines.
func (b *Bot) formatGroups(groups []engine.MonthGroup) string {
	var lines []string
	for _, g := range groups {
		name := b.monthName(g.Month)
		header := b.tr.MsgOr(config.TKeyMonthHeader,
			map[string]any{"Month": name},
			fmt.Sprintf(config.FallbackMonthHdr, name),
		)
		lines = append(lines, config.LineSeparator+header)
		for _, r := range g.Records {
			lines = append(lines, fmt.Sprintf(config.FormatListEntry, r.MonthDay.Day, r.Label()))
		}
	}
	return strings.Join(lines, config.LineSeparator)
}
