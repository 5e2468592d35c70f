// config.go holds .chatsync config types and resolution (load, env tokens, flag overrides).
package chatcli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// localConfig holds optional values from .chatsync/config.yaml (flags override).
type localConfig struct {
	APIURL         string `yaml:"api_url"`
	FilesURL       string `yaml:"files_url"`
	Token          string `yaml:"token,omitempty"`
	TokenFromEnv   string `yaml:"token_from_env,omitempty"`
	NATSURL        string `yaml:"nats_url"`
	ValkeyAddr     string `yaml:"valkey_addr"`
	ValkeyPassword string `yaml:"valkey_password,omitempty"`
	PageSize       *int   `yaml:"page_size"`
	AckDelay       string `yaml:"ack_delay"`
	SubjectPrefix  string `yaml:"subject_prefix"`
}

// settings is the effective configuration after merging config file and flags.
type settings struct {
	apiURL         string
	filesURL       string
	token          string
	natsURL        string
	valkeyAddr     string
	valkeyPassword string
	pageSize       int
	ackDelay       time.Duration
	subjectPrefix  string
}

// flagValues are the values given on the command line; empty/zero means "not set".
type flagValues struct {
	apiURL     string
	filesURL   string
	token      string
	natsURL    string
	valkeyAddr string
	pageSize   int
	ackDelay   time.Duration
}

// resolveSettings merges cfg with flags. Flags win; the token falls back to token_from_env.
func resolveSettings(cfg localConfig, flags flagValues) (settings, error) {
	s := settings{
		apiURL:         firstNonEmpty(flags.apiURL, cfg.APIURL, defaultAPIURL),
		filesURL:       firstNonEmpty(flags.filesURL, cfg.FilesURL),
		natsURL:        firstNonEmpty(flags.natsURL, cfg.NATSURL),
		valkeyAddr:     firstNonEmpty(flags.valkeyAddr, cfg.ValkeyAddr),
		valkeyPassword: cfg.ValkeyPassword,
		subjectPrefix:  strings.TrimSpace(cfg.SubjectPrefix),
		pageSize:       defaultPageSize,
		ackDelay:       defaultAckDelay,
	}

	s.token = firstNonEmpty(flags.token, cfg.Token)
	if s.token == "" && cfg.TokenFromEnv != "" {
		s.token = os.Getenv(strings.TrimSpace(cfg.TokenFromEnv))
	}

	if cfg.PageSize != nil {
		s.pageSize = *cfg.PageSize
	}
	if flags.pageSize > 0 {
		s.pageSize = flags.pageSize
	}
	if s.pageSize <= 0 || s.pageSize > 100 {
		return settings{}, fmt.Errorf("page_size must be between 1 and 100, got %d", s.pageSize)
	}

	if cfg.AckDelay != "" {
		d, err := time.ParseDuration(cfg.AckDelay)
		if err != nil {
			return settings{}, fmt.Errorf("ack_delay: %w", err)
		}
		s.ackDelay = d
	}
	if flags.ackDelay > 0 {
		s.ackDelay = flags.ackDelay
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// configPaths returns ./.chatsync/config.yaml then ~/.chatsync/config.yaml.
func configPaths() []string {
	var try []string
	if cwd, err := os.Getwd(); err == nil {
		try = append(try, filepath.Join(cwd, ".chatsync", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		try = append(try, filepath.Join(home, ".chatsync", "config.yaml"))
	}
	return try
}

// loadLocalConfig returns the first config found in paths.
// If none exists, returns (empty, "", nil).
func loadLocalConfig(paths []string) (localConfig, string, error) {
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return localConfig{}, "", err
		}
		var cfg localConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return localConfig{}, "", fmt.Errorf("%s: %w", p, err)
		}
		return cfg, p, nil
	}
	return localConfig{}, "", nil
}
