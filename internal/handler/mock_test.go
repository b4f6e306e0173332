package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
)

// mockUpstream はUpstreamClientのモック。未設定のメソッドはゼロ値を返す。
type mockUpstream struct {
	registerFn   func(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error)
	loginFn      func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error)
	meFn         func(ctx context.Context) (*model.Account, error)
	listShopsFn  func(ctx context.Context) ([]model.Shop, error)
	getShopFn    func(ctx context.Context, id int64) (*model.Shop, error)
	createShopFn func(ctx context.Context, in model.ShopInput) (*model.Shop, error)
	updateShopFn func(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error)
	deleteShopFn func(ctx context.Context, id int64) error
	listPostsFn  func(ctx context.Context, skip, limit int) ([]model.Post, error)
	createPostFn func(ctx context.Context, in apiclient.PostInput) (*model.Post, error)
	chatFn       func(ctx context.Context, message string) (string, error)
}

func (m *mockUpstream) Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return &apiclient.Token{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (m *mockUpstream) Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return &apiclient.Token{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (m *mockUpstream) Me(ctx context.Context) (*model.Account, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return &model.Account{ID: 1, Email: "owner@kamitori.jp"}, nil
}

func (m *mockUpstream) ListShops(ctx context.Context) ([]model.Shop, error) {
	if m.listShopsFn != nil {
		return m.listShopsFn(ctx)
	}
	return nil, nil
}

func (m *mockUpstream) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	if m.getShopFn != nil {
		return m.getShopFn(ctx, id)
	}
	return &model.Shop{ID: id}, nil
}

func (m *mockUpstream) CreateShop(ctx context.Context, in model.ShopInput) (*model.Shop, error) {
	if m.createShopFn != nil {
		return m.createShopFn(ctx, in)
	}
	return &model.Shop{ID: 1, Name: in.Name}, nil
}

func (m *mockUpstream) UpdateShop(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error) {
	if m.updateShopFn != nil {
		return m.updateShopFn(ctx, id, in)
	}
	return &model.Shop{ID: id, Name: in.Name}, nil
}

func (m *mockUpstream) DeleteShop(ctx context.Context, id int64) error {
	if m.deleteShopFn != nil {
		return m.deleteShopFn(ctx, id)
	}
	return nil
}

func (m *mockUpstream) ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, skip, limit)
	}
	return nil, nil
}

func (m *mockUpstream) CreatePost(ctx context.Context, in apiclient.PostInput) (*model.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, in)
	}
	return &model.Post{ID: 1, ShopID: in.ShopID, OriginalText: in.Text}, nil
}

func (m *mockUpstream) Chat(ctx context.Context, message string) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, message)
	}
	return "", nil
}

// mockMetrics はMetricsRecorderのモック。
type mockMetrics struct {
	redirects    []string
	statuses     []int
	rateLimited  []string
	chatFailures []string
}

func (m *mockMetrics) RecordGuardRedirect(layer string) { m.redirects = append(m.redirects, layer) }
func (m *mockMetrics) RecordHTTPStatus(statusCode int) { m.statuses = append(m.statuses, statusCode) }
func (m *mockMetrics) RecordRateLimited(route string) { m.rateLimited = append(m.rateLimited, route) }
func (m *mockMetrics) RecordChatFailure(reason string) { m.chatFailures = append(m.chatFailures, reason) }

// newTestRouter はテスト用の完全なルーターを構築するヘルパー。
func newTestRouter(t *testing.T, upstream UpstreamClient) (http.Handler, *mockMetrics) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig(), nil, logger)
	t.Cleanup(rl.Stop)

	m := &mockMetrics{}
	router := NewRouter(&RouterDeps{
		Upstream:    upstream,
		Sanitizer:   security.NewContentSanitizer(),
		RateLimiter: rl,
		Metrics:     m,
		Logger:      logger,
		Guard:       guard.DefaultConfig(),
		Auth: AuthHandlerConfig{
			CookieMaxAge: 18000,
			AdminPath:    "/admin",
			LoginPath:    "/login",
		},
		APIBaseURL:      "http://api.test",
		DefaultLanguage: model.DefaultLanguage,
	})
	return router, m
}

func serve(router http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func tokenCookie(value string) *http.Cookie {
	return &http.Cookie{Name: "token", Value: value}
}

// findSetCookie はレスポンスのSet-Cookieからtoken Cookieを探す。
func findSetCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}
