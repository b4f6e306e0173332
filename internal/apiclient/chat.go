package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig はチャット呼び出しのサーキットブレーカー設定。
type BreakerConfig struct {
	// ConsecutiveFailures は遮断状態に移行する連続失敗回数。
	ConsecutiveFailures uint32
	// Timeout は遮断状態から半開状態に移行するまでの時間。
	Timeout time.Duration
}

// DefaultBreakerConfig はデフォルトのブレーカー設定を返す。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 5,
		Timeout:             30 * time.Second,
	}
}

// ErrChatUnavailable はブレーカーが遮断中でチャットを呼び出さなかったことを示す。
var ErrChatUnavailable = errors.New("chat upstream is temporarily unavailable")

type chatBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func newChatBreaker(cfg BreakerConfig, logger *slog.Logger) *chatBreaker {
	def := DefaultBreakerConfig()
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// 利用者が中断した呼び出しはサーバー障害として数えない
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &chatBreaker{cb: cb}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat はコンシェルジュに質問を送り、回答を返す。
// セッションIDは送らず、1回ごとに独立した呼び出しとして扱う。
// POST /chat
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	out, err := c.chat.cb.Execute(func() (interface{}, error) {
		var resp chatResponse
		if err := c.doJSON(ctx, http.MethodPost, "/chat", nil, chatRequest{Message: message}, &resp); err != nil {
			return nil, err
		}
		return resp.Response, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", ErrChatUnavailable
		}
		return "", err
	}
	return out.(string), nil
}

// Reply はconcierge.Replierを実装する。
func (c *Client) Reply(ctx context.Context, message string) (string, error) {
	return c.Chat(ctx, message)
}
