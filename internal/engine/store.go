package engine

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Store is the in-memory birthday index built from one source file.
//
// Reload is the only mutation point. The store does no locking of its own:
// callers that share a Store between goroutines must serialize
// Reload-then-query sequences themselves.
type Store struct {
	path string
	log  *slog.Logger

	// index maps MonthDay.Key() to records in file order.
	index map[string][]BirthdayRecord
	// records keeps the whole file order for stable listings.
	records []BirthdayRecord

	lastModified time.Time
	loads        int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used to report source problems.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.log = logger
		}
	}
}

// NewStore creates an empty store reading from path. Nothing is read until Reload.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:  path,
		log:   slog.Default(),
		index: make(map[string][]BirthdayRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(config.LogKeyComponent, config.CompStore)
	return s
}

// Path returns the source file path.
func (s *Store) Path() string {
	return s.path
}

// Reload rebuilds the index when the source modification time moved past the
// last loaded one. It reports whether a rebuild happened.
//
// A missing or unreadable source is logged and leaves the previous index in place.
func (s *Store) Reload() bool {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Error(config.ErrSourceMissing, config.LogKeyFile, s.path)
		return false
	}
	if err != nil {
		s.log.Error(config.ErrSourceStat, config.LogKeyFile, s.path, config.LogKeyError, err)
		return false
	}

	modified := info.ModTime()
	if !modified.After(s.lastModified) {
		s.log.Debug(config.MsgStoreUnchanged, config.LogKeyModified, modified)
		return false
	}

	start := time.Now()
	records, err := s.readSource()
	if err != nil {
		s.log.Error(config.ErrSourceRead, config.LogKeyFile, s.path, config.LogKeyError, err)
		return false
	}

	index := make(map[string][]BirthdayRecord, len(records))
	for _, r := range records {
		key := r.MonthDay.Key()
		index[key] = append(index[key], r)
	}

	s.index = index
	s.records = records
	s.lastModified = modified
	s.loads++

	s.log.Info(config.MsgStoreReloaded,
		config.LogKeyFile, s.path,
		config.LogKeyRecords, len(records),
		config.LogKeyDays, len(index),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return true
}

// readSource decodes the whole source, tolerating a UTF-8 byte order mark.
func (s *Store) readSource() ([]BirthdayRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	// Best effort close. Errors in Close() for read-only files are rarely actionable here.
	defer func() { _ = f.Close() }()

	var r io.Reader = transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	if isVCardPath(s.path) {
		return decodeVCards(r, s.log.With(config.LogKeyFormat, config.ExtVCF))
	}
	records, err := decodeCSV(r, s.log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSourceRead, err)
	}
	return records, nil
}

// Loads returns how many times the index has been rebuilt.
func (s *Store) Loads() int {
	return s.loads
}

// LastModified returns the modification time of the loaded source.
func (s *Store) LastModified() time.Time {
	return s.lastModified
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns every record in file order.
func (s *Store) Records() []BirthdayRecord {
	return slices.Clone(s.records)
}

// TodayMatches returns the records falling on day, in file order.
// It never reloads; call Reload first.
func (s *Store) TodayMatches(day MonthDay) []BirthdayRecord {
	matches := s.index[day.Key()]
	if len(matches) == 0 {
		return []BirthdayRecord{}
	}
	return slices.Clone(matches)
}

// AllGroupedFrom returns every record ordered from ref onwards: first by
// (month - ref) mod 12, then by day, ties kept in file order. A new group
// starts whenever the calendar month changes along that order.
func (s *Store) AllGroupedFrom(ref time.Month) []MonthGroup {
	sorted := slices.Clone(s.records)
	slices.SortStableFunc(sorted, func(a, b BirthdayRecord) int {
		if d := monthOffset(a.MonthDay.Month, ref) - monthOffset(b.MonthDay.Month, ref); d != 0 {
			return d
		}
		return a.MonthDay.Day - b.MonthDay.Day
	})

	groups := []MonthGroup{}
	for _, r := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].Month != r.MonthDay.Month {
			groups = append(groups, MonthGroup{Month: r.MonthDay.Month})
		}
		last := &groups[len(groups)-1]
		last.Records = append(last.Records, r)
	}
	return groups
}

// monthOffset is (m - ref) mod 12, always non-negative.
func monthOffset(m, ref time.Month) int {
	return ((int(m)-int(ref))%config.MonthsPerYear + config.MonthsPerYear) % config.MonthsPerYear
}
