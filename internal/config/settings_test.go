package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-bot/internal/config"
	"github.com/zalando/go-keyring"
)

// clearEnv blanks every variable LoadSettings reads so host values do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		config.EnvBotToken, config.EnvChatID, config.EnvSourcePath,
		config.EnvAppID, config.EnvAppHash, config.EnvSessionFile,
		config.EnvTimezone, config.EnvLanguage, config.EnvNotifyTime,
		config.EnvCalendarPrt, config.EnvCalendarBnd,
	} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()

	s, err := config.LoadSettings(config.LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err, "A missing dotenv file must be tolerated")

	assert.Equal(t, config.DefaultSourcePath, s.SourcePath)
	assert.Equal(t, config.DefaultLanguage, s.Language)
	assert.Equal(t, config.DefaultTimezone, s.Location.String())
	assert.Equal(t, 8, s.NotifyHour)
	assert.Equal(t, 0, s.NotifyMinute)
	assert.Empty(t, s.CalendarPort)
	assert.Equal(t, "127.0.0.1", s.CalendarBind, "The feed must stay on loopback unless configured")
	assert.Empty(t, s.BotToken)
}

func TestLoadSettings_Environment(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()

	t.Setenv(config.EnvBotToken, " 123:abc ")
	t.Setenv(config.EnvChatID, "-1001234")
	t.Setenv(config.EnvSourcePath, "/data/people.csv")
	t.Setenv(config.EnvAppID, "42")
	t.Setenv(config.EnvAppHash, "hash")
	t.Setenv(config.EnvTimezone, "UTC")
	t.Setenv(config.EnvLanguage, "EN")
	t.Setenv(config.EnvNotifyTime, "07:30")
	t.Setenv(config.EnvCalendarPrt, "18080")
	t.Setenv(config.EnvCalendarBnd, "0.0.0.0")

	s, err := config.LoadSettings(config.LoadOptions{EnvFile: filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, err)

	assert.Equal(t, "123:abc", s.BotToken)
	assert.Equal(t, "-1001234", s.ChatID)
	assert.Equal(t, "/data/people.csv", s.SourcePath)
	assert.Equal(t, 42, s.AppID)
	assert.Equal(t, "en", s.Language)
	assert.Equal(t, "UTC", s.Location.String())
	assert.Equal(t, 7, s.NotifyHour)
	assert.Equal(t, 30, s.NotifyMinute)
	assert.Equal(t, "18080", s.CalendarPort)
	assert.Equal(t, "0.0.0.0", s.CalendarBind)
	assert.NoError(t, s.ValidateTransport())
}

func TestLoadSettings_DotenvFile(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CSV_PATH=/srv/birthdays.csv\nBIRTHDAY_LANGUAGE=en\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv(config.EnvSourcePath)
		_ = os.Unsetenv(config.EnvLanguage)
	})

	s, err := config.LoadSettings(config.LoadOptions{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, "/srv/birthdays.csv", s.SourcePath)
	assert.Equal(t, "en", s.Language)
}

func TestLoadSettings_ConfigFile(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()

	cfgFile := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("csv_path: /etc/bot/birthdays.vcf\nnotify_time: \"09:15\"\n"), 0o600))

	s, err := config.LoadSettings(config.LoadOptions{
		EnvFile:    filepath.Join(t.TempDir(), "none.env"),
		ConfigFile: cfgFile,
	})
	require.NoError(t, err)
	assert.Equal(t, "/etc/bot/birthdays.vcf", s.SourcePath)
	assert.Equal(t, 9, s.NotifyHour)
	assert.Equal(t, 15, s.NotifyMinute)
}

func TestLoadSettings_KeyringFallback(t *testing.T) {
	clearEnv(t)
	keyring.MockInit()
	require.NoError(t, keyring.Set(config.KeyringService, config.KeyringTokenUser, "from-keyring"))

	s, err := config.LoadSettings(config.LoadOptions{EnvFile: filepath.Join(t.TempDir(), "none.env")})
	require.NoError(t, err)
	assert.Equal(t, "from-keyring", s.BotToken)
}

func TestLoadSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		value   string
		wantErr string
	}{
		{"Timezone", config.EnvTimezone, "Mars/Olympus", config.ErrSettingsTimezone},
		{"NotifyTime", config.EnvNotifyTime, "8 o'clock", config.ErrSettingsTime},
		{"Language", config.EnvLanguage, "tlh", config.ErrSettingsLanguage},
		{"Port", config.EnvCalendarPrt, "99999", config.ErrSettingsPort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			keyring.MockInit()
			t.Setenv(tt.env, tt.value)

			_, err := config.LoadSettings(config.LoadOptions{EnvFile: filepath.Join(t.TempDir(), "none.env")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTransport(t *testing.T) {
	full := config.Settings{BotToken: "t", ChatID: "c", AppID: 1, AppHash: "h"}
	assert.NoError(t, full.ValidateTransport())

	noToken := full
	noToken.BotToken = ""
	assert.EqualError(t, noToken.ValidateTransport(), config.ErrSettingsToken)

	noChat := full
	noChat.ChatID = ""
	assert.EqualError(t, noChat.ValidateTransport(), config.ErrSettingsChat)

	noApp := full
	noApp.AppID = 0
	assert.EqualError(t, noApp.ValidateTransport(), config.ErrSettingsApp)
}

func TestParseNotifyTime(t *testing.T) {
	h, m, err := config.ParseNotifyTime("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 59, m)

	_, _, err = config.ParseNotifyTime("24:00")
	assert.Error(t, err)
}
