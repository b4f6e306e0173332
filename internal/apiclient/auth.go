package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/kamitori/connect/internal/model"
)

// RegisterRequest は新規登録のリクエスト。招待コードが必須。
type RegisterRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	InviteCode string `json:"invite_code" validate:"required"`
}

// LoginRequest はログインのリクエスト。
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Token はトークン発行レスポンス。
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register は管理者アカウントを登録し、発行されたトークンを返す。
// POST /auth/register
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Token, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	var tok Token
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Login はメールアドレスとパスワードでトークンを取得する。
// POST /auth/token（OAuth2パスワードフロー形式のフォーム）
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Token, error) {
	if err := c.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	form := url.Values{}
	form.Set("username", req.Email)
	form.Set("password", req.Password)

	var tok Token
	err := c.doForm(ctx, "/auth/token", form, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Me はトークンに紐づくアカウントを返す。
// GET /auth/me
func (c *Client) Me(ctx context.Context) (*model.Account, error) {
	var acc model.Account
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

func (c *Client) doForm(ctx context.Context, path string, form url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, nil,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", out)
}
