package engine

import (
	"encoding/csv"
	"errors"
	"io"
	"log/slog"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// ParseRow converts one delimited row into a record.
// The boolean is false when the row must be skipped.
func ParseRow(fields []string) (BirthdayRecord, bool) {
	if len(fields) < config.MinRecordFields || len(fields) > config.MaxRecordFields {
		return BirthdayRecord{}, false
	}

	md, err := ParseMonthDay(fields[config.FieldDate])
	if err != nil {
		return BirthdayRecord{}, false
	}

	handle := ""
	if len(fields) > config.FieldHandle {
		handle = fields[config.FieldHandle]
	}
	return NewRecord(fields[config.FieldName], handle, md)
}

// decodeCSV streams rows from r and returns the accepted records in file order.
// Quotes are parsed strictly so a broken quoted field fails its own line
// instead of absorbing the rows after it; such lines are skipped like any
// other malformed row.
func decodeCSV(r io.Reader, log *slog.Logger) ([]BirthdayRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []BirthdayRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Debug(config.MsgSkippedRow, config.LogKeyRow, parseErr.Line, config.LogKeyError, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		record, ok := ParseRow(row)
		if !ok {
			continue
		}
		records = append(records, record)
	}
}
