// Package apiclient は上通コネクトAPIサーバーのクライアントを提供する。
//
// 認証が必要なエンドポイントにはsession.Transportが送信時点のトークンを付与する。
// トークンがなくてもリクエストは送信し、拒否の判断はサーバーに委ねる。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kamitori/connect/internal/session"
)

const userAgent = "KamitoriConnect/1.0"

// Observer はAPI呼び出しの結果を記録する。statusは通信エラーの場合0。
type Observer interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
}

// Config はClientの設定。
type Config struct {
	BaseURL string
	// Timeout は1回の呼び出しの上限。0の場合は上限を設けない。
	Timeout time.Duration
	// Tokens は送信時点のトークンを返す。nilの場合はヘッダを付与しない。
	Tokens session.TokenSource
	// Breaker はチャット呼び出しのサーキットブレーカー設定。
	Breaker BreakerConfig
	// Observer は呼び出し結果の記録先。nilでもよい。
	Observer Observer
	// Transport はテスト用に差し替え可能な下位のRoundTripper。
	Transport http.RoundTripper
}

type tokenContextKey struct{}

// WithToken はこの呼び出しに限って使うトークンをコンテキストに設定する。
// エッジサーバーがリクエストごとのCookieの値を中継する場合に使う。
// Config.Tokensより優先される。
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// Client はAPIサーバーのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    *url.URL
	validate   *validator.Validate
	chat       *chatBreaker
	observer   Observer
}

// New はClientの新しいインスタンスを生成する。
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse API base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("API base URL must be http or https: %q", cfg.BaseURL)
	}

	return &Client{
		httpClient: &http.Client{
			Transport: session.NewTransport(cfg.Tokens, cfg.Transport),
			Timeout:   cfg.Timeout,
		},
		logger:   logger,
		baseURL:  base,
		validate: validator.New(),
		chat:     newChatBreaker(cfg.Breaker, logger),
		observer: cfg.Observer,
	}, nil
}

// BaseURL はAPIのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// endpoint はパスからリクエストURLを組み立てる。
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// doJSON はJSONリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// inがnilの場合はボディなしで送信する。outがnilの場合はボディを読み捨てる。
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, query, body, contentType, out)
}

// do はリクエストを送信する共通処理。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := tokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.observe(method, path, 0, duration)
		c.logger.Warn("API呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, duration)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("API呼び出し",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Float64("duration_ms", float64(duration.Nanoseconds())/float64(time.Millisecond)),
		slog.String("request_id", requestID),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := &HTTPError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Detail: parseDetail(respBody),
		}
		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "APIサーバーがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", herr.Detail),
			slog.String("request_id", requestID),
		)
		return herr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

func (c *Client) observe(method, path string, status int, d time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(method+" "+routeOf(path), status, d)
}

// routeOf はメトリクスのラベル数が増えないよう、数値IDを{id}に置き換える。
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if strings.Trim(p, "0123456789") == "" {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
