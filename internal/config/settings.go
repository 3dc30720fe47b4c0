package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

// Settings holds the runtime configuration assembled from the environment,
// an optional YAML file and the OS keyring.
type Settings struct {
	BotToken     string
	ChatID       string
	SourcePath   string
	AppID        int
	AppHash      string
	SessionFile  string
	Language     string
	Location     *time.Location
	NotifyHour   int
	NotifyMinute int
	CalendarPort string // Empty disables the ICS feed
	CalendarBind string // Host the feed listens on
}

// LoadOptions points LoadSettings at optional files.
type LoadOptions struct {
	EnvFile    string // Dotenv file, missing file is tolerated
	ConfigFile string // YAML file, must exist when set
}

// envBindings maps settings keys to the environment variables that feed them.
var envBindings = map[string]string{
	KeyBotToken:    EnvBotToken,
	KeyChatID:      EnvChatID,
	KeySourcePath:  EnvSourcePath,
	KeyAppID:       EnvAppID,
	KeyAppHash:     EnvAppHash,
	KeySessionFile: EnvSessionFile,
	KeyTimezone:    EnvTimezone,
	KeyLanguage:    EnvLanguage,
	KeyNotifyTime:  EnvNotifyTime,
	KeyCalendarPrt: EnvCalendarPrt,
	KeyCalendarBnd: EnvCalendarBnd,
}

// LoadSettings reads and validates the runtime settings.
// Transport credentials are not required here; see ValidateTransport.
func LoadSettings(opts LoadOptions) (Settings, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	// Existing environment variables win over the dotenv file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("%s: %w", ErrSettingsEnv, err)
	}

	v := viper.New()
	v.SetDefault(KeySourcePath, DefaultSourcePath)
	v.SetDefault(KeySessionFile, DefaultSessionFile)
	v.SetDefault(KeyTimezone, DefaultTimezone)
	v.SetDefault(KeyLanguage, DefaultLanguage)
	v.SetDefault(KeyNotifyTime, DefaultNotifyTime)
	v.SetDefault(KeyCalendarBnd, DefaultCalendarBnd)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		v.SetConfigType(ConfigFileType)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		}
	}

	s := Settings{
		BotToken:     strings.TrimSpace(v.GetString(KeyBotToken)),
		ChatID:       strings.TrimSpace(v.GetString(KeyChatID)),
		SourcePath:   strings.TrimSpace(v.GetString(KeySourcePath)),
		AppID:        v.GetInt(KeyAppID),
		AppHash:      strings.TrimSpace(v.GetString(KeyAppHash)),
		SessionFile:  strings.TrimSpace(v.GetString(KeySessionFile)),
		Language:     strings.ToLower(strings.TrimSpace(v.GetString(KeyLanguage))),
		CalendarPort: strings.TrimSpace(v.GetString(KeyCalendarPrt)),
		CalendarBind: strings.TrimSpace(v.GetString(KeyCalendarBnd)),
	}

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString(KeyTimezone)))
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", ErrSettingsTimezone, err)
	}
	s.Location = loc

	hour, minute, err := ParseNotifyTime(v.GetString(KeyNotifyTime))
	if err != nil {
		return Settings{}, err
	}
	s.NotifyHour, s.NotifyMinute = hour, minute

	if !slices.Contains(SupportedLanguages, s.Language) {
		return Settings{}, fmt.Errorf("%s: %q", ErrSettingsLanguage, s.Language)
	}

	if s.CalendarPort != "" {
		port, err := strconv.Atoi(s.CalendarPort)
		if err != nil || port < MinPort || port > MaxPort {
			return Settings{}, fmt.Errorf("%s: %q", ErrSettingsPort, s.CalendarPort)
		}
	}

	if s.BotToken == "" {
		s.BotToken = tokenFromKeyring()
	}

	return s, nil
}

// ValidateTransport checks the settings needed to connect to Telegram.
func (s Settings) ValidateTransport() error {
	if s.BotToken == "" {
		return errors.New(ErrSettingsToken)
	}
	if s.ChatID == "" {
		return errors.New(ErrSettingsChat)
	}
	if s.AppID <= 0 || s.AppHash == "" {
		return errors.New(ErrSettingsApp)
	}
	return nil
}

// ParseNotifyTime parses a "HH:MM" wall clock time.
func ParseNotifyTime(value string) (int, int, error) {
	t, err := time.Parse(LayoutNotifyTime, strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: %w", ErrSettingsTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

// tokenFromKeyring returns the stored bot token or an empty string.
func tokenFromKeyring() string {
	token, err := keyring.Get(KeyringService, KeyringTokenUser)
	if err != nil {
		slog.Debug(MsgTokenKeyringErr,
			LogKeyComponent, CompSettings,
			LogKeyError, err,
		)
		return ""
	}
	slog.Info(MsgTokenKeyring, LogKeyComponent, CompSettings)
	return strings.TrimSpace(token)
}
