// Package bot turns store queries into chat replies and scheduled notifications.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
)

// Messenger delivers an outbound message to the configured chat.
type Messenger interface {
	Notify(ctx context.Context, text string) error
}

// CalendarPublisher receives the calendar feed after each rebuild.
type CalendarPublisher interface {
	Publish(feed engine.Feed)
}

// Bot serializes access to the store and renders replies.
// Every reload-then-query sequence runs under mu, so the bot is safe to call
// from the transport handlers and the daily worker at the same time.
type Bot struct {
	mu sync.Mutex

	store    *engine.Store
	location *time.Location
	tr       *Translator
	clock    engine.Clock
	log      *slog.Logger

	messenger Messenger
	publisher CalendarPublisher
	calendar  *engine.Calendar
	published int // store.Loads() at the last publish, -1 before the first one
}

// Option configures a Bot.
type Option func(*Bot)

// WithClock injects the time source (tests use a fixed clock).
func WithClock(c engine.Clock) Option {
	return func(b *Bot) { b.clock = c }
}

// WithMessenger sets the outbound channel used by CheckBirthdays.
func WithMessenger(m Messenger) Option {
	return func(b *Bot) { b.messenger = m }
}

// WithPublisher enables the calendar feed.
func WithPublisher(p CalendarPublisher) Option {
	return func(b *Bot) { b.publisher = p }
}

// WithLogger sets the bot logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) {
		if l != nil {
			b.log = l
		}
	}
}

// New creates a bot over store. loc defines "today".
func New(store *engine.Store, loc *time.Location, tr *Translator, opts ...Option) *Bot {
	if loc == nil {
		loc = time.Local
	}
	b := &Bot{
		store:     store,
		location:  loc,
		tr:        tr,
		clock:     engine.RealClock{},
		log:       slog.Default(),
		published: -1,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(config.LogKeyComponent, config.CompBot)
	b.calendar = &engine.Calendar{
		Clock:         b.clock,
		FormatSummary: func(r engine.BirthdayRecord) string { return r.Label() },
	}
	return b
}

// refresh reloads the store and republishes the feed when the index changed.
// Callers must hold mu.
func (b *Bot) refresh() {
	b.store.Reload()

	if b.publisher == nil || b.store.Loads() == b.published {
		return
	}
	feed, err := b.calendar.Build(b.store.Records(), b.store.LastModified())
	if err != nil {
		b.log.Error(config.ErrICalEncode, config.LogKeyError, err)
		return
	}
	b.publisher.Publish(feed)
	b.published = b.store.Loads()
}

// Refresh reloads the store outside of any query.
func (b *Bot) Refresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh()
}

// today reloads and returns the records of the current day in the bot zone.
func (b *Bot) today() []engine.BirthdayRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()
	return b.store.TodayMatches(engine.Today(b.clock, b.location))
}

// CheckBirthdays is the scheduled job: it sends today's birthdays to the chat.
// Nothing is sent when nobody has a birthday.
func (b *Bot) CheckBirthdays(ctx context.Context) error {
	if b.messenger == nil {
		return errors.New(config.ErrMessengerRequired)
	}

	records := b.today()
	if len(records) == 0 {
		b.log.Debug(config.MsgNotifyNone)
		return nil
	}

	b.log.Info(config.MsgBdayToday, config.LogKeyCount, len(records))
	if err := b.messenger.Notify(ctx, b.formatNotification(records)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrNotifyFailed, err)
	}
	b.log.Info(config.MsgNotifySent, config.LogKeyCount, len(records))
	return nil
}

// TodayReply answers the "today" command.
func (b *Bot) TodayReply() string {
	records := b.today()
	if len(records) == 0 {
		return b.tr.MsgOr(config.TKeyNoneToday, nil, config.FallbackNoneToday)
	}
	return formatToday(records)
}

// ListReply answers the "birthdays" command: every record, starting from the current month.
func (b *Bot) ListReply() string {
	b.mu.Lock()
	b.refresh()
	current := b.clock.Now().In(b.location).Month()
	groups := b.store.AllGroupedFrom(current)
	b.mu.Unlock()

	if len(groups) == 0 {
		return b.tr.MsgOr(config.TKeyNoneAtAll, nil, config.FallbackNoneAtAll)
	}
	return b.formatGroups(groups)
}

// Handle maps a bare command name to its reply.
// The boolean is false for commands the bot does not know.
func (b *Bot) Handle(ctx context.Context, command string) (string, bool) {
	command = strings.ToLower(strings.TrimSpace(command))
	b.log.DebugContext(ctx, config.MsgCommand, config.LogKeyCommand, command)

	switch command {
	case config.CommandStart:
		return b.tr.MsgOr(config.TKeyStarted, nil, config.FallbackStarted), true
	case config.CommandHelp:
		return b.tr.MsgOr(config.TKeyHelp, nil, helpFallback()), true
	case config.CommandToday:
		return b.TodayReply(), true
	case config.CommandBirthdays:
		return b.ListReply(), true
	default:
		return "", false
	}
}

// helpFallback lists the commands when no catalog is available.
func helpFallback() string {
	commands := []string{config.CommandHelp, config.CommandToday, config.CommandBirthdays}
	lines := make([]string, 0, len(commands))
	for _, c := range commands {
		lines = append(lines, config.CommandPrefix+c)
	}
	return strings.Join(lines, config.LineSeparator)
}
