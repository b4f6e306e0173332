// Package handler はエッジサーバーのHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/credential"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするAPIクライアントのインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error)
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error)
	Me(ctx context.Context) (*model.Account, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieMaxAge int  // token Cookieの有効期間（秒）
	CookieSecure bool // BASE_URLがhttpsの場合true
	AdminPath    string
	LoginPath    string
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.CookieMaxAge <= 0 {
		config.CookieMaxAge = credential.DefaultCookieMaxAge
	}
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// registerRequest は登録リクエストのボディ。
type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は登録・ログイン成功時のレスポンス。
// ブラウザ側はaccess_tokenを永続ストアに保存し、redirectへ遷移する。
type authResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Redirect    string `json:"redirect"`
}

// redirectResponse は遷移先だけを返すレスポンス。
type redirectResponse struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message,omitempty"`
}

// Register は招待コード付きの新規登録を処理する。
// 成功時はtoken Cookieを設定し、管理画面への遷移を返す。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	tok, err := h.service.Register(r.Context(), apiclient.RegisterRequest{
		Email:      req.Email,
		Password:   req.Password,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		h.writeAuthError(w, r, err, apiclient.RegisterMessage(err))
		return
	}

	h.completeLogin(w, tok)
}

// Login はメールアドレスとパスワードによるログインを処理する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("リクエストボディの解析に失敗しました"))
		return
	}

	tok, err := h.service.Login(r.Context(), apiclient.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, r, err, apiclient.LoginMessage(err))
		return
	}

	h.completeLogin(w, tok)
}

// LoginPage はガードのリダイレクト先。ログインが必要であることを返す。
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, redirectResponse{
		Redirect: h.config.LoginPath,
		Message:  model.MsgLoginRequired,
	})
}

// Logout はtoken Cookieを削除し、ログイン画面への遷移を返す。
// Cookieがなくても成功として扱う。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, credential.ExpiredHTTPCookie(h.config.CookieSecure))
	writeJSON(w, http.StatusOK, redirectResponse{Redirect: h.config.LoginPath})
}

// Me はtoken Cookieに紐づくアカウントを返す。
// GET /admin/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	r = upstreamContext(r)
	acc, err := h.service.Me(r.Context())
	if err != nil {
		handleUpstreamError(w, r, err, model.MsgLoginRequired)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, tok *apiclient.Token) {
	if tok == nil || tok.AccessToken == "" {
		slog.Error("upstream returned an empty token")
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, credential.NewHTTPCookie(tok.AccessToken, h.config.CookieMaxAge, h.config.CookieSecure))
	writeJSON(w, http.StatusOK, authResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Redirect:    h.config.AdminPath,
	})
}

// writeAuthError は登録・ログイン失敗を画面表示用メッセージ付きで返す。
// Cookieには触れない。
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := http.StatusBadGateway
	category := "upstream"
	switch upstream := apiclient.StatusOf(err); {
	case apiclient.IsValidation(err), upstream == http.StatusBadRequest, upstream == http.StatusUnprocessableEntity:
		status = http.StatusBadRequest
		category = "validation"
	case upstream == http.StatusUnauthorized:
		status = http.StatusUnauthorized
		category = "auth"
	}

	slog.Warn("authentication request rejected",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)

	code := model.ErrCodeUpstreamFailed
	if category == "validation" {
		code = model.ErrCodeValidationFailed
	} else if category == "auth" {
		code = model.ErrCodeUnauthenticated
	}
	middleware.WriteErrorResponse(w, status, &model.APIError{
		Code:     code,
		Message:  message,
		Category: category,
		Action:   model.MsgInvalidInput,
	})
}
