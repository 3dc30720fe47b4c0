package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tartampluch/go-birthday-bot/internal/bot"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/tartampluch/go-birthday-bot/internal/engine"
	"github.com/tartampluch/go-birthday-bot/internal/server"
	"github.com/tartampluch/go-birthday-bot/internal/telegram"
	"github.com/tartampluch/go-birthday-bot/internal/worker"
)

// runBot wires the store, the bot, the Telegram client, the daily worker and
// the optional calendar feed, then blocks until ctx is cancelled or a
// component fails.
func runBot(ctx context.Context, settings config.Settings) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := slog.Default()
	store := engine.NewStore(settings.SourcePath, engine.WithLogger(logger))
	tr := bot.NewTranslator(settings.Language)

	var b *bot.Bot
	client, err := telegram.New(settings, telegram.HandlerFunc(func(ctx context.Context, command string) (string, bool) {
		return b.Handle(ctx, command)
	}), logger)
	if err != nil {
		return err
	}

	botOpts := []bot.Option{bot.WithMessenger(client), bot.WithLogger(logger)}

	var srv *server.FeedServer
	if settings.CalendarPort != "" {
		srv = server.New(settings.CalendarBind, settings.CalendarPort, logger)
		botOpts = append(botOpts, bot.WithPublisher(srv))
	}
	b = bot.New(store, settings.Location, tr, botOpts...)

	// Load once so /birthdays and the feed are ready before the first message.
	b.Refresh()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	fail := func(err error) {
		if err != nil {
			errs <- err
			cancel()
		}
	}

	if srv != nil {
		wg.Go(func() { fail(srv.Start(ctx)) })
	}

	daily := &worker.Daily{
		Hour:         settings.NotifyHour,
		Minute:       settings.NotifyMinute,
		Location:     settings.Location,
		StartupDelay: config.StartupDelay,
		Job:          b.CheckBirthdays,
		Logger:       logger,
	}

	wg.Go(func() {
		fail(client.Run(ctx, func(runCtx context.Context) {
			wg.Go(func() { fail(daily.Run(runCtx)) })
		}))
		// The client only returns when ctx is done or the session failed.
		cancel()
	})

	wg.Wait()
	close(errs)

	var joined error
	for err := range errs {
		joined = errors.Join(joined, err)
	}
	if joined == nil {
		slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	}
	return joined
}
