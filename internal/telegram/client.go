// Package telegram connects the bot to Telegram over MTProto.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gotd/td/session"
	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// CommandHandler answers bare command names ("today", "birthdays", ...).
type CommandHandler interface {
	Handle(ctx context.Context, command string) (string, bool)
}

// HandlerFunc adapts a function to CommandHandler.
type HandlerFunc func(ctx context.Context, command string) (string, bool)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, command string) (string, bool) {
	return f(ctx, command)
}

// Client runs the bot session and delivers replies and notifications.
type Client struct {
	appID       int
	appHash     string
	token       string
	sessionFile string
	chat        chatTarget

	handler CommandHandler
	log     *slog.Logger

	sender   atomic.Pointer[message.Sender]
	username atomic.Pointer[string]
	peer     atomic.Pointer[tg.InputPeerClass] // target chat, learned from incoming updates
}

// New validates the transport settings and prepares a client.
func New(s config.Settings, handler CommandHandler, logger *slog.Logger) (*Client, error) {
	if err := s.ValidateTransport(); err != nil {
		return nil, err
	}
	chat, err := parseChatID(s.ChatID)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		appID:       s.AppID,
		appHash:     s.AppHash,
		token:       s.BotToken,
		sessionFile: s.SessionFile,
		chat:        chat,
		handler:     handler,
		log:         logger.With(config.LogKeyComponent, config.CompTelegram),
	}, nil
}

// Run connects, authorizes as a bot and serves updates until ctx is cancelled.
// ready is called once the client can send messages.
func (c *Client) Run(ctx context.Context, ready func(ctx context.Context)) error {
	storage, err := newSessionStorage(c.sessionFile)
	if err != nil {
		return err
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		return c.onMessage(ctx, e, u, u.Message)
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		return c.onMessage(ctx, e, u, u.Message)
	})

	client := gotdtelegram.NewClient(c.appID, c.appHash, gotdtelegram.Options{
		UpdateHandler:  dispatcher,
		SessionStorage: storage,
	})

	err = client.Run(ctx, func(ctx context.Context) error {
		if err := c.authorize(ctx, client); err != nil {
			return err
		}

		self, err := client.Self(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", config.ErrTelegramAuth, err)
		}
		username := self.Username
		c.username.Store(&username)
		c.sender.Store(message.NewSender(client.API()))

		c.log.Info(config.MsgTelegramReady, config.LogKeyValue, username)
		if ready != nil {
			ready(ctx)
		}

		<-ctx.Done()
		c.log.Info(config.MsgTelegramStop)
		return nil
	})
	c.sender.Store(nil)

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", config.ErrTelegramRun, err)
	}
	return nil
}

// authorize restores the stored session or signs in with the bot token.
func (c *Client) authorize(ctx context.Context, client *gotdtelegram.Client) error {
	status, err := client.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrTelegramAuth, err)
	}
	if status.Authorized {
		return nil
	}
	if _, err := client.Auth().Bot(ctx, c.token); err != nil {
		return fmt.Errorf("%s: %w", config.ErrTelegramAuth, err)
	}
	return nil
}

// Notify sends text to the configured chat.
func (c *Client) Notify(ctx context.Context, text string) error {
	sender := c.sender.Load()
	if sender == nil {
		return errors.New(config.ErrTelegramNotReady)
	}

	ctx, cancel := context.WithTimeout(ctx, config.SendTimeout)
	defer cancel()

	var err error
	switch {
	case c.chat.username != "":
		_, err = sender.Resolve(c.chat.username).Text(ctx, text)
	case c.peer.Load() != nil:
		_, err = sender.To(*c.peer.Load()).Text(ctx, text)
	default:
		_, err = sender.To(c.chat.inputPeer()).Text(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrTelegramSend, err)
	}
	return nil
}

// onMessage answers commands addressed to the bot.
func (c *Client) onMessage(ctx context.Context, e tg.Entities, u message.AnswerableMessageUpdate, raw tg.MessageClass) error {
	msg, ok := raw.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	c.rememberPeer(e, msg.PeerID)

	var username string
	if p := c.username.Load(); p != nil {
		username = *p
	}
	command, ok := parseCommand(msg.Message, username)
	if !ok || c.handler == nil {
		return nil
	}

	reply, known := c.handler.Handle(ctx, command)
	if !known || reply == "" {
		return nil
	}

	sender := c.sender.Load()
	if sender == nil {
		return errors.New(config.ErrTelegramNotReady)
	}
	if _, err := sender.Reply(e, u).Text(ctx, reply); err != nil {
		c.log.Error(config.ErrTelegramSend,
			config.LogKeyCommand, command,
			config.LogKeyError, err,
		)
	}
	return nil
}

// rememberPeer keeps the access hash of the target chat once it writes to the bot.
func (c *Client) rememberPeer(e tg.Entities, peer tg.PeerClass) {
	var input tg.InputPeerClass
	switch p := peer.(type) {
	case *tg.PeerUser:
		if c.chat.kind != peerUser || c.chat.id != p.UserID {
			return
		}
		if user, ok := e.Users[p.UserID]; ok {
			input = &tg.InputPeerUser{UserID: user.ID, AccessHash: user.AccessHash}
		}
	case *tg.PeerChannel:
		if c.chat.kind != peerChannel || c.chat.id != p.ChannelID {
			return
		}
		if channel, ok := e.Channels[p.ChannelID]; ok {
			input = &tg.InputPeerChannel{ChannelID: channel.ID, AccessHash: channel.AccessHash}
		}
	}
	if input != nil {
		c.peer.Store(&input)
		c.log.Debug(config.MsgTelegramPeer, config.LogKeyChat, c.chat.id)
	}
}

// parseCommand extracts the bare command name from a message text.
// "/today@my_bot extra" gives "today" when username is "my_bot"; commands
// addressed to another bot are ignored.
func parseCommand(text, username string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], config.CommandPrefix) {
		return "", false
	}

	command := strings.TrimPrefix(fields[0], config.CommandPrefix)
	if name, mention, found := strings.Cut(command, config.CommandMention); found {
		if username == "" || !strings.EqualFold(mention, username) {
			return "", false
		}
		command = name
	}
	if command == "" {
		return "", false
	}
	return strings.ToLower(command), true
}

type peerKind int

const (
	peerUser peerKind = iota
	peerChat
	peerChannel
)

// chatTarget is the parsed TELEGRAM_CHAT_ID.
type chatTarget struct {
	username string
	kind     peerKind
	id       int64
}

// parseChatID accepts "@username", a user id, "-<chat id>" or "-100<channel id>".
func parseChatID(value string) (chatTarget, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, config.UsernamePrefix) {
		if len(value) == len(config.UsernamePrefix) {
			return chatTarget{}, fmt.Errorf("%s: %q", config.ErrTelegramPeer, value)
		}
		return chatTarget{username: value}, nil
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id == 0 {
		return chatTarget{}, fmt.Errorf("%s: %q", config.ErrTelegramPeer, value)
	}

	switch {
	case id > 0:
		return chatTarget{kind: peerUser, id: id}, nil
	case strings.HasPrefix(value, config.ChannelIDPrefix):
		channelID, err := strconv.ParseInt(strings.TrimPrefix(value, config.ChannelIDPrefix), 10, 64)
		if err != nil || channelID <= 0 {
			return chatTarget{}, fmt.Errorf("%s: %q", config.ErrTelegramPeer, value)
		}
		return chatTarget{kind: peerChannel, id: channelID}, nil
	default:
		return chatTarget{kind: peerChat, id: -id}, nil
	}
}

// inputPeer builds a peer without an access hash, used until the chat is seen.
func (t chatTarget) inputPeer() tg.InputPeerClass {
	switch t.kind {
	case peerChannel:
		return &tg.InputPeerChannel{ChannelID: t.id}
	case peerChat:
		return &tg.InputPeerChat{ChatID: t.id}
	default:
		return &tg.InputPeerUser{UserID: t.id}
	}
}

// newSessionStorage creates the session directory and returns file storage in it.
func newSessionStorage(path string) (*session.FileStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = config.DefaultSessionFile
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTelegramSession, err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrTelegramSession, err)
	}
	return &session.FileStorage{Path: absPath}, nil
}

