package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/idna"
)

// DisabledStateDir はSTATE_DIRに指定すると永続化を無効にする値。
const DisabledStateDir = "-"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Upstream API
	APIBaseURL string
	APITimeout time.Duration

	// Credential
	StateDir     string
	CookieMaxAge int

	// Navigation
	ProtectedPrefix string
	LoginPath       string
	AdminPath       string

	// Content
	DefaultLanguage string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool

	// Rate Limit
	ChatRatePerMin int

	// Circuit Breaker
	BreakerFailures int
	BreakerTimeout  time.Duration

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数が優先）。
// API_BASE_URLの形式が不正な場合のみエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	rawAPI := getEnvString("API_BASE_URL", "http://127.0.0.1:8000")
	apiURL, err := normalizeURL(rawAPI)
	if err != nil {
		return nil, fmt.Errorf("API_BASE_URL is invalid: %q: %w", rawAPI, err)
	}
	cfg.APIBaseURL = apiURL

	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 0)
	cfg.StateDir = getEnvString("STATE_DIR", defaultStateDir())
	cfg.CookieMaxAge = getEnvInt("COOKIE_MAX_AGE", 18000)
	cfg.ProtectedPrefix = getEnvString("PROTECTED_PREFIX", "/admin")
	cfg.LoginPath = getEnvString("LOGIN_PATH", "/login")
	cfg.AdminPath = getEnvString("ADMIN_PATH", "/admin")
	cfg.DefaultLanguage = getEnvString("DEFAULT_LANGUAGE", "en")
	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:3000")
	if u, err := normalizeURL(cfg.BaseURL); err == nil {
		cfg.BaseURL = u
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.ChatRatePerMin = getEnvInt("CHAT_RATE_PER_MIN", 20)
	cfg.BreakerFailures = getEnvInt("BREAKER_FAILURES", 5)
	cfg.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT", 30*time.Second)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// PersistenceEnabled は永続ストレージが使えるかを返す。
func (c *Config) PersistenceEnabled() bool {
	return c.StateDir != "" && c.StateDir != DisabledStateDir
}

// CredentialDir は資格情報ファイルの置き場所を返す。永続化が無効な場合は空文字列。
func (c *Config) CredentialDir() string {
	if !c.PersistenceEnabled() {
		return ""
	}
	return c.StateDir
}

// normalizeURL はhttp(s)のURLを検証し、末尾のスラッシュを除いて返す。
// 日本語ドメインはPunycodeに変換する。ブラウザが送るOriginと比較できる形にそろえるため。
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("host is empty")
	}

	if net.ParseIP(u.Hostname()) != nil {
		return u.String(), nil
	}
	host, err := idna.Lookup.ToASCII(u.Hostname())
	if err != nil {
		return "", fmt.Errorf("invalid host: %w", err)
	}
	if port := u.Port(); port != "" {
		host = net.JoinHostPort(host, port)
	}
	u.Host = host
	return u.String(), nil
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "kamitori")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
