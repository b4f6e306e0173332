package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/concierge"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
)

// maxChatMessageLength はチャット1回あたりの入力文字数の上限。
const maxChatMessageLength = 1000

// ChatServiceInterface はチャットハンドラーが必要とするAPIクライアントのインターフェース。
type ChatServiceInterface interface {
	Chat(ctx context.Context, message string) (string, error)
}

// ChatFailureRecorder はチャット失敗の記録先。
type ChatFailureRecorder interface {
	RecordChatFailure(reason string)
}

// ChatHandler はコンシェルジュチャットの中継ハンドラー。
type ChatHandler struct {
	service   ChatServiceInterface
	sanitizer security.ContentSanitizerService
	recorder  ChatFailureRecorder
}

// NewChatHandler はChatHandlerを生成する。recorderはnilでもよい。
func NewChatHandler(service ChatServiceInterface, sanitizer security.ContentSanitizerService, recorder ChatFailureRecorder) *ChatHandler {
	return &ChatHandler{
		service:   service,
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat は質問をAPIサーバーに中継し、回答を返す。
// 失敗した場合は定型のお詫びをメッセージに入れて返す。
// POST /chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("message (required)"))
		return
	}
	if len([]rune(message)) > maxChatMessageLength {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("message (too long)"))
		return
	}

	reply, err := h.service.Chat(r.Context(), message)
	if err != nil {
		reason := "upstream"
		if errors.Is(err, apiclient.ErrChatUnavailable) {
			reason = "breaker_open"
		}
		if h.recorder != nil {
			h.recorder.RecordChatFailure(reason)
		}
		slog.Warn("chat relay failed",
			slog.String("reason", reason),
			slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
			slog.String("error", err.Error()),
		)
		handleUpstreamError(w, r, err, concierge.Apology)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: h.sanitizer.Sanitize(reply)})
}
