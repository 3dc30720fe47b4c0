package engine

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// isVCardPath reports whether the source should be decoded as vCard.
func isVCardPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case config.ExtVCF, config.ExtVCard:
		return true
	default:
		return false
	}
}

// decodeVCards reads every card with a usable BDAY, in file order.
// Name strategy: FN (Formatted) > N (Structured). NICKNAME becomes the handle.
func decodeVCards(r io.Reader, log *slog.Logger) ([]BirthdayRecord, error) {
	decoder := vcard.NewDecoder(r)

	var records []BirthdayRecord
	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			// A broken card desynchronizes the decoder; keep what was read so far.
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			return records, nil
		}

		bday := card.Get(config.VCardBDAY)
		if bday == nil || bday.Value == "" {
			continue
		}
		birthDate, err := parseDate(bday.Value)
		if err != nil {
			log.Debug(config.MsgSkippedRow, config.LogKeyValue, bday.Value)
			continue
		}

		name := ""
		if fn := card.Get(config.VCardFN); fn != nil {
			name = fn.Value
		} else if n := card.Get(config.VCardN); n != nil {
			name = n.Value
		}
		handle := ""
		if nick := card.Get(config.VCardNickname); nick != nil {
			handle = nick.Value
		}

		record, ok := NewRecord(name, handle, MonthDayOf(birthDate))
		if !ok {
			continue
		}
		records = append(records, record)
	}
}

// parseDate handles the vCard BDAY formats. The year is discarded by callers.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, nil
		}
	}

	// Truncated dates (year unknown). Re-anchor on the leap placeholder so --02-29 survives.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, errors.New(config.ErrDateParse)
}
