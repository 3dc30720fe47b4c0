package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Version is injected via -ldflags.
var Version = "dev"

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName          = "Go Birthday Bot"
	AppID            = "com.github.tartampluch.go-birthday-bot"
	CommandName      = "go-birthday-bot"
	KeyringService   = "com.github.tartampluch.go-birthday-bot"
	KeyringTokenUser = "telegram-bot-token"
	LogFileName      = "app.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Commands & Flags
// -----------------------------------------------------------------------------

const (
	CmdRun     = "run"
	CmdToday   = "today"
	CmdList    = "list"
	CmdVersion = "version"

	CmdDescRoot    = "Telegram bot announcing birthdays from a CSV or vCard file"
	CmdDescRun     = "Start the bot, the daily notification and the calendar feed"
	CmdDescToday   = "Print today's birthdays and exit"
	CmdDescList    = "Print all birthdays starting from the current month and exit"
	CmdDescVersion = "Show application version and exit"

	FlagDebug       = "debug"
	FlagConfig      = "config"
	FlagEnvFile     = "env-file"
	FlagDescDebug   = "Enable debug logging"
	FlagDescConfig  = "Optional YAML settings file"
	FlagDescEnvFile = "Dotenv file loaded before reading the environment"

	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Settings Keys & Environment Variables
// -----------------------------------------------------------------------------

const (
	// Settings keys (viper). Environment variables are bound explicitly
	// because they keep the names used by existing deployments.
	KeyBotToken    = "bot_token"
	KeyChatID      = "chat_id"
	KeySourcePath  = "csv_path"
	KeyAppID       = "app_id"
	KeyAppHash     = "app_hash"
	KeySessionFile = "session_file"
	KeyTimezone    = "timezone"
	KeyLanguage    = "language"
	KeyNotifyTime  = "notify_time"
	KeyCalendarPrt = "calendar_port"
	KeyCalendarBnd = "calendar_bind"

	EnvBotToken    = "TELEGRAM_BOT_TOKEN"
	EnvChatID      = "TELEGRAM_CHAT_ID"
	EnvSourcePath  = "CSV_PATH"
	EnvAppID       = "TELEGRAM_APP_ID"
	EnvAppHash     = "TELEGRAM_APP_HASH"
	EnvSessionFile = "TELEGRAM_SESSION_FILE"
	EnvTimezone    = "BIRTHDAY_TIMEZONE"
	EnvLanguage    = "BIRTHDAY_LANGUAGE"
	EnvNotifyTime  = "BIRTHDAY_NOTIFY_TIME"
	EnvCalendarPrt = "CALENDAR_PORT"
	EnvCalendarBnd = "CALENDAR_BIND"

	DefaultEnvFile = ".env"
	ConfigFileType = "yaml"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultSourcePath  = "/app/birthdays.csv"
	DefaultSessionFile = ".cache/telegram/session.json"
	DefaultTimezone    = "Europe/Moscow"
	DefaultLanguage    = "ru"
	DefaultNotifyTime  = "08:00"
	DefaultCalendarBnd = "127.0.0.1" // Loopback unless overridden
	DefaultLeapYear    = 2000 // Placeholder year; leap so that 29-02 stays valid
	StartupDelay       = 1 * time.Second

	// Record file layout
	MinRecordFields = 2
	MaxRecordFields = 3
	FieldName       = 0
	FieldDate       = 1
	FieldHandle     = 2
	DateSeparator   = "-"
	MonthsPerYear   = 12

	// Layouts
	LayoutDayMonthYear = "2-1-2006"
	LayoutNotifyTime   = "15:04"
	FormatDayMonthYear = "%s-%s-%d"
)

// SupportedLanguages defines the list of available reply languages (ISO 639-1).
var SupportedLanguages = []string{"en", "ru"}

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	ICalVersion = "2.0"
	ICalProdid  = "-//Go Birthday Bot//Engine//EN"
	ICalCalName = "Birthdays"
	ICalMethod  = "PUBLISH"
	ICalScale   = "GREGORIAN"
	ICalRRule   = "FREQ=YEARLY"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRRule      = "RRULE"
	PropRefresh    = "REFRESH-INTERVAL"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"
	PropMethod     = "METHOD"

	VCardBDAY     = "BDAY"
	VCardFN       = "FN"
	VCardN        = "N"
	VCardNickname = "NICKNAME"

	DefaultICalRefresh = 1 * time.Hour

	// UIDNamespace seeds the name-based UUIDs of calendar events.
	UIDNamespace    = "6f1c3f0e-9b7a-4b53-8f2e-2d6a1c0b9e41"
	FormatHashInput = "%s|%s|%s"
	FormatUID       = "%s@%s"
	ICalDomain      = "gobirthdaybot"
	FallbackSummary = "%s"

	// StubVCalendar is the minimal valid iCalendar object used when no events are found.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Data Formats & File Extensions
// -----------------------------------------------------------------------------

const (
	// Date layouts used for parsing vCard BDAY fields
	DateFormatFullDash  = "2006-01-02"
	DateFormatFullBasic = "20060102"
	DateFormatRFC3339   = time.RFC3339
	DateFormatFullT     = "2006-01-02T15:04:05Z"
	DateFormatNoYearD   = "--01-02"
	DateFormatNoYearB   = "--0102"

	ExtVCF   = ".vcf"
	ExtVCard = ".vcard"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	SendTimeout        = 30 * time.Second
	RetryAfterSeconds  = "10"
	AllowedMethods     = "GET, HEAD"
	RouteRoot          = "/"
	RouteCalendar      = "/birthdays.ics"
	RouteHealth        = "/healthz"
	FeedFileName       = "birthdays.ics"
	HealthOK           = "ok"
	MinPort            = 1
	MaxPort            = 65535
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderEntries         = "X-Birthday-Entries"

	HTTPMsgInitializing = "Calendar initializing, please retry"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeTextPlain       = "text/plain; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Telegram
// -----------------------------------------------------------------------------

const (
	CommandPrefix    = "/"
	CommandMention   = "@"
	UsernamePrefix   = "@"
	ChannelIDPrefix  = "-100"
	CommandStart     = "start"
	CommandHelp      = "help"
	CommandToday     = "today"
	CommandBirthdays = "birthdays"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyStarted       = "reply_started"
	TKeyHelp          = "reply_help"
	TKeyNoneToday     = "reply_none_today"
	TKeyNoneAtAll     = "reply_none"
	TKeyNotifyLine    = "notify_today_line" // Requires Entry
	TKeyMonthHeader   = "list_month_header" // Requires Month
	TKeyMonthPrefix   = "month_"            // Suffixed with 1..12
	LocalesDir        = "locales"
	LocaleFilePrefix  = "active."
	LocaleFileSuffix  = ".json"
	LocaleUnmarshaler = "json"
)

// -----------------------------------------------------------------------------
// Reply Formats & Fallbacks
// -----------------------------------------------------------------------------

const (
	FormatEntryHandle = "%s (%s)"
	FormatListEntry   = "%d: %s"
	FallbackMonthHdr  = "%s:"
	FallbackNotify    = "Today is the birthday of: %s"
	FallbackNoneToday = "No birthdays today"
	FallbackNoneAtAll = "No birthdays"
	FallbackStarted   = "Bot started!"
	LineSeparator     = "\n"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrSourceMissing     = "birthday source file not found"
	ErrSourceStat        = "failed to stat birthday source"
	ErrSourceRead        = "failed to read birthday source"
	ErrDateParse         = "unable to parse date"
	ErrICalEncode        = "failed to encode iCalendar data"
	ErrServerStartup     = "server startup failed"
	ErrServerShutdown    = "server shutdown failed"
	ErrWriteResp         = "failed to write response body"
	ErrLogFile           = "failed to open log file"
	ErrCacheDir          = "could not determine user cache dir"
	ErrCreateDir         = "could not create app cache dir"
	ErrAppFailed         = "application failed unexpectedly"
	ErrLocalesAccess     = "failed to access embedded locales"
	ErrLocaleLoad        = "failed to load locale file"
	ErrSettingsRead      = "failed to read settings file"
	ErrSettingsEnv       = "failed to load dotenv file"
	ErrSettingsTimezone  = "invalid timezone"
	ErrSettingsTime      = "invalid notify time (expected HH:MM)"
	ErrSettingsLanguage  = "unsupported language"
	ErrSettingsPort      = "calendar port must be between 1 and 65535"
	ErrSettingsToken     = "telegram bot token is required"
	ErrSettingsChat      = "telegram chat id is required"
	ErrSettingsApp       = "telegram app id and app hash are required"
	ErrTelegramRun       = "telegram client stopped"
	ErrTelegramAuth      = "telegram bot authorization failed"
	ErrTelegramSend      = "failed to send telegram message"
	ErrTelegramNotReady  = "telegram client is not connected"
	ErrTelegramPeer      = "invalid telegram chat id"
	ErrTelegramSession   = "failed to prepare telegram session directory"
	ErrNotifyFailed      = "failed to deliver birthday notification"
	ErrMessengerRequired = "messenger is required"
	ErrJobRequired       = "worker job is required"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Application stopped gracefully"
	MsgLogWarning       = "Warning: %s at %s: %v\n"
	MsgStoreReloaded    = "Birthdays loaded successfully"
	MsgStoreUnchanged   = "Birthday source unchanged, keeping index"
	MsgSkippedRow       = "Skipping malformed record"
	MsgSkippedCard      = "Skipping malformed vCard"
	MsgBdayToday        = "Birthdays found today"
	MsgNotifySent       = "Birthday notification sent"
	MsgNotifyNone       = "No birthdays today, nothing to send"
	MsgCommand          = "Command received"
	MsgWorkerStart      = "Daily worker started"
	MsgWorkerStop       = "Worker stopping due to context cancellation"
	MsgWorkerNext       = "Next notification scheduled"
	MsgWorkerDone       = "Scheduled job finished"
	MsgServerListen     = "HTTP server listening"
	MsgServerStop       = "Shutting down HTTP server..."
	MsgFeedPublished    = "Calendar feed published"
	MsgCalendarRendered = "Calendar rendered"
	MsgLocaleSkip       = "Skipping non-locale file"
	MsgLocaleBadName    = "Skipping malformed locale filename"
	MsgLocaleLoaded     = "Locale loaded successfully"
	MsgTransMissing     = "Missing translation key"
	MsgTokenKeyring     = "Bot token loaded from keyring"
	MsgTokenKeyringErr  = "Keyring lookup failed"
	MsgTelegramReady    = "Telegram client authorized"
	MsgTelegramStop     = "Telegram client stopping"
	MsgTelegramPeer     = "Target chat peer learned"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyFormat    = "format"
	LogKeyRow       = "row"
	LogKeyValue     = "value"
	LogKeyCount     = "count"
	LogKeyRecords   = "records"
	LogKeyDays      = "days"
	LogKeyModified  = "modified"
	LogKeyCommand   = "command"
	LogKeyNext      = "next_run"
	LogKeyWait      = "wait"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyChat      = "chat"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompStore    = "store"
	CompCalendar = "calendar"
	CompBot      = "bot"
	CompWorker   = "worker"
	CompServer   = "server"
	CompTelegram = "telegram"
	CompSettings = "settings"
	CompI18n     = "i18n"
)
