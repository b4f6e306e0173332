package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// upstreamContext はtoken Cookieの値をAPI呼び出し用のコンテキストに載せ替える。
func upstreamContext(r *http.Request) *http.Request {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		return r
	}
	return r.WithContext(apiclient.WithToken(r.Context(), token))
}

// handleUpstreamError はAPIサーバー呼び出しのエラーを統一フォーマットのレスポンスに変換する。
// fallbackは画面に出す固定メッセージ。
func handleUpstreamError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForError(apiErr), apiErr)
		return
	}

	status := apiclient.StatusOf(err)
	slog.Warn("upstream call failed",
		slog.String("path", r.URL.Path),
		slog.Int("upstream_status", status),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeValidationFailed,
			Message:  fallback,
			Category: "validation",
			Action:   model.MsgInvalidInput,
		})
	case errors.Is(err, apiclient.ErrChatUnavailable):
		middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, model.NewUpstreamFailedError(fallback))
	default:
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError(fallback))
	}
}
