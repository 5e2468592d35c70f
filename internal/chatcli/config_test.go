package chatcli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_loadLocalConfig(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "missing", "config.yaml")
	second := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(second, []byte(`
api_url: https://chat.example.com/api
files_url: https://files.example.com
token_from_env: CHATSYNC_TEST_TOKEN
nats_url: nats://127.0.0.1:4222
page_size: 25
ack_delay: 500ms
subject_prefix: prod.channel
`), 0o600))

	cfg, path, err := loadLocalConfig([]string{first, second})
	require.NoError(t, err)
	assert.Equal(t, second, path)
	assert.Equal(t, "https://chat.example.com/api", cfg.APIURL)
	assert.Equal(t, "CHATSYNC_TEST_TOKEN", cfg.TokenFromEnv)
	require.NotNil(t, cfg.PageSize)
	assert.Equal(t, 25, *cfg.PageSize)

	cfg, path, err = loadLocalConfig([]string{first})
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, localConfig{}, cfg)
}

func Test_loadLocalConfig_Invalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("page_size: [oops"), 0o600))
	_, _, err := loadLocalConfig([]string{p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), p)
}

func Test_resolveSettings(t *testing.T) {
	size := 25
	t.Setenv("CHATSYNC_TEST_TOKEN", "from-env")

	tests := []struct {
		name  string
		cfg   localConfig
		flags flagValues
		check func(t *testing.T, s settings)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, s settings) {
				assert.Equal(t, defaultAPIURL, s.apiURL)
				assert.Equal(t, defaultPageSize, s.pageSize)
				assert.Equal(t, defaultAckDelay, s.ackDelay)
				assert.Empty(t, s.token)
			},
		},
		{
			name: "config values and env token",
			cfg:  localConfig{APIURL: "https://a", PageSize: &size, AckDelay: "250ms", TokenFromEnv: "CHATSYNC_TEST_TOKEN"},
			check: func(t *testing.T, s settings) {
				assert.Equal(t, "https://a", s.apiURL)
				assert.Equal(t, 25, s.pageSize)
				assert.Equal(t, 250*time.Millisecond, s.ackDelay)
				assert.Equal(t, "from-env", s.token)
			},
		},
		{
			name:  "flags override config",
			cfg:   localConfig{APIURL: "https://a", Token: "cfg", PageSize: &size, TokenFromEnv: "CHATSYNC_TEST_TOKEN"},
			flags: flagValues{apiURL: "https://b", token: "flag", pageSize: 10, ackDelay: 2 * time.Second},
			check: func(t *testing.T, s settings) {
				assert.Equal(t, "https://b", s.apiURL)
				assert.Equal(t, "flag", s.token)
				assert.Equal(t, 10, s.pageSize)
				assert.Equal(t, 2*time.Second, s.ackDelay)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := resolveSettings(tt.cfg, tt.flags)
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}

func Test_resolveSettings_Errors(t *testing.T) {
	big := 500
	_, err := resolveSettings(localConfig{PageSize: &big}, flagValues{})
	require.Error(t, err)

	_, err = resolveSettings(localConfig{AckDelay: "soon"}, flagValues{})
	require.Error(t, err)
}
