package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/concierge"
	"github.com/kamitori/connect/internal/credential"
	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/session"
)

// --- モック定義 ---

type mockAPI struct {
	registerFn   func(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error)
	loginFn      func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error)
	meFn         func(ctx context.Context) (*model.Account, error)
	listShopsFn  func(ctx context.Context) ([]model.Shop, error)
	createShopFn func(ctx context.Context, in model.ShopInput) (*model.Shop, error)
	updateShopFn func(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error)
	deleteShopFn func(ctx context.Context, id int64) error
	listPostsFn  func(ctx context.Context, skip, limit int) ([]model.Post, error)
	createPostFn func(ctx context.Context, in apiclient.PostInput) (*model.Post, error)
	chatFn       func(ctx context.Context, message string) (string, error)

	meCalls int
}

func (m *mockAPI) Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, req)
	}
	return &apiclient.Token{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (m *mockAPI) Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, req)
	}
	return &apiclient.Token{AccessToken: "tok", TokenType: "bearer"}, nil
}

func (m *mockAPI) Me(ctx context.Context) (*model.Account, error) {
	m.meCalls++
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return &model.Account{ID: 1, Email: "owner@kamitori.jp"}, nil
}

func (m *mockAPI) ListShops(ctx context.Context) ([]model.Shop, error) {
	if m.listShopsFn != nil {
		return m.listShopsFn(ctx)
	}
	return nil, nil
}

func (m *mockAPI) GetShop(ctx context.Context, id int64) (*model.Shop, error) {
	return &model.Shop{ID: id}, nil
}

func (m *mockAPI) CreateShop(ctx context.Context, in model.ShopInput) (*model.Shop, error) {
	if m.createShopFn != nil {
		return m.createShopFn(ctx, in)
	}
	return &model.Shop{ID: 1, Name: in.Name}, nil
}

func (m *mockAPI) UpdateShop(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error) {
	if m.updateShopFn != nil {
		return m.updateShopFn(ctx, id, in)
	}
	return &model.Shop{ID: id, Name: in.Name}, nil
}

func (m *mockAPI) DeleteShop(ctx context.Context, id int64) error {
	if m.deleteShopFn != nil {
		return m.deleteShopFn(ctx, id)
	}
	return nil
}

func (m *mockAPI) ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error) {
	if m.listPostsFn != nil {
		return m.listPostsFn(ctx, skip, limit)
	}
	return nil, nil
}

func (m *mockAPI) CreatePost(ctx context.Context, in apiclient.PostInput) (*model.Post, error) {
	if m.createPostFn != nil {
		return m.createPostFn(ctx, in)
	}
	return &model.Post{ID: 1, ShopID: in.ShopID, OriginalText: in.Text}, nil
}

func (m *mockAPI) Chat(ctx context.Context, message string) (string, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, message)
	}
	return "", nil
}

// brokenBackend は書き込みに失敗する保存先。
type brokenBackend struct {
	credential.Memory
}

func (b *brokenBackend) Set(token string) error {
	return errors.New("disk full")
}

type fixture struct {
	rt         *Runtime
	api        *mockAPI
	ctrl       *session.Controller
	persistent credential.Persistent
	cookie     *credential.Memory
	nav        *Navigator
	out        *bytes.Buffer
}

func newFixture(t *testing.T, input string) *fixture {
	t.Helper()
	return newFixtureWith(t, input, credential.NewMemory())
}

func newFixtureWith(t *testing.T, input string, persistent credential.Persistent) *fixture {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	out := &bytes.Buffer{}
	cookie := credential.NewMemory()
	store := credential.NewStore(persistent, cookie, logger)
	nav := NewNavigator(out)
	ctrl := session.NewController(store, nav, session.DefaultPaths(), logger)
	api := &mockAPI{}

	rt := New(Deps{
		API:        api,
		Store:      store,
		Session:    ctrl,
		Navigator:  nav,
		Guard:      guard.DefaultConfig(),
		APIBaseURL: "http://api.test",
		AdminPath:  "/admin",
		In:         strings.NewReader(input),
		Out:        out,
		Logger:     logger,
	})
	return &fixture{rt: rt, api: api, ctrl: ctrl, persistent: persistent, cookie: cookie, nav: nav, out: out}
}

// seed は前回のログインで保存されたトークンを再現する。
func (f *fixture) seed(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, f.persistent.Set(token))
	require.NoError(t, f.cookie.Set(token))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// --- 管理画面のガード ---

func TestDashboard_NoToken_RedirectsToLogin(t *testing.T) {
	f := newFixture(t, "")
	f.rt.Start()

	err := f.rt.Dashboard(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"/login"}, f.nav.History())
	assert.Contains(t, f.out.String(), model.MsgLoginRequired)
	assert.Zero(t, f.api.meCalls, "admin content must not load")
}

func TestDashboard_RestoredSession_ShowsShops(t *testing.T) {
	f := newFixture(t, "")
	f.seed(t, "tok123")
	f.api.listShopsFn = func(ctx context.Context) ([]model.Shop, error) {
		return []model.Shop{{ID: 3, Name: "肥後もっこす", Category: "ラーメン"}}, nil
	}
	f.rt.Start()

	err := f.rt.Dashboard(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"/admin"}, f.nav.History())
	assert.True(t, f.ctrl.IsAuthenticated())
	assert.Contains(t, f.out.String(), "owner@kamitori.jp")
	assert.Contains(t, f.out.String(), "肥後もっこす（ラーメン）")
}

func TestDashboard_WaitsForHydration(t *testing.T) {
	f := newFixture(t, "")
	f.seed(t, "tok123")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := f.rt.Dashboard(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.nav.History(), "no view must render before hydration")
}

func TestDashboard_CookieOnly_ForkIsCleared(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.cookie.Set("orphan"))
	f.rt.Start()

	err := f.rt.Dashboard(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"/login"}, f.nav.History())
	v, _ := f.cookie.Get()
	assert.Empty(t, v, "diverged cookie must be cleared")
}

func TestDashboard_PersistentOnly_EdgeRejects(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, f.persistent.Set("tok"))
	f.rt.Start()

	err := f.rt.Dashboard(testContext(t))

	require.NoError(t, err)
	assert.Equal(t, []string{"/login"}, f.nav.History())
	p, _ := f.persistent.Get()
	c, _ := f.cookie.Get()
	assert.Empty(t, p, "persistent copy must not survive the edge rejection")
	assert.Empty(t, c)
	assert.False(t, f.ctrl.IsAuthenticated(), "hydrated token must be dropped")
}

func TestDashboard_DivergedCopies_InvalidatesSession(t *testing.T) {
	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	f := newFixture(t, "")
	require.NoError(t, f.persistent.Set("a"))
	require.NoError(t, f.cookie.Set("b"))
	f.rt.Start()

	require.NoError(t, f.rt.Dashboard(testContext(t)))

	assert.Equal(t, []string{"/login"}, f.nav.History())
	assert.False(t, f.ctrl.IsAuthenticated())
	assert.Equal(t, session.Unauthenticated, f.ctrl.State())

	client, err := apiclient.New(apiclient.Config{BaseURL: srv.URL, Tokens: f.ctrl}, nil)
	require.NoError(t, err)
	_, err = client.ListShops(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, gotAuth, "cleared credential must not be sent")
}

func TestDashboard_ExpiredToken_ShowsReloginHint(t *testing.T) {
	f := newFixture(t, "")
	f.seed(t, "stale")
	f.api.meFn = func(ctx context.Context) (*model.Account, error) {
		return nil, &apiclient.HTTPError{Status: 401, Detail: "Could not validate credentials"}
	}
	f.rt.Start()

	require.NoError(t, f.rt.Dashboard(testContext(t)))

	assert.Contains(t, f.out.String(), "再度ログインしてください")
	assert.Contains(t, f.out.String(), "店舗はまだ登録されていません")
	assert.True(t, f.ctrl.IsAuthenticated(), "upstream rejection does not log out")
}

// --- ログイン・登録・ログアウト ---

func TestLogin_Success_PersistsBothAndNavigatesToAdmin(t *testing.T) {
	f := newFixture(t, "")
	f.api.loginFn = func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error) {
		assert.Equal(t, "owner@kamitori.jp", req.Email)
		return &apiclient.Token{AccessToken: "tok123", TokenType: "bearer"}, nil
	}

	err := f.rt.Login(testContext(t), apiclient.LoginRequest{Email: "owner@kamitori.jp", Password: "secret"})

	require.NoError(t, err)
	p, _ := f.persistent.Get()
	c, _ := f.cookie.Get()
	assert.Equal(t, "tok123", p)
	assert.Equal(t, "tok123", c)
	assert.Equal(t, []string{"/admin"}, f.nav.History())
	assert.Contains(t, f.out.String(), "ログインしました。")
}

func TestLogin_Incorrect_ShowsMessage(t *testing.T) {
	f := newFixture(t, "")
	f.api.loginFn = func(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error) {
		return nil, &apiclient.HTTPError{Status: 401, Detail: model.DetailIncorrectLogin}
	}

	require.NoError(t, f.rt.Login(testContext(t), apiclient.LoginRequest{Email: "a@b.com", Password: "x"}))

	assert.Contains(t, f.out.String(), model.MsgIncorrectLogin)
	assert.Empty(t, f.nav.History())
	assert.False(t, f.ctrl.IsAuthenticated())
}

func TestLogin_SaveFails_StaysUnauthenticated(t *testing.T) {
	f := newFixtureWith(t, "", &brokenBackend{})

	require.NoError(t, f.rt.Login(testContext(t), apiclient.LoginRequest{Email: "a@b.com", Password: "x"}))

	assert.False(t, f.ctrl.IsAuthenticated())
	assert.Empty(t, f.nav.History())
	c, _ := f.cookie.Get()
	assert.Empty(t, c)
	assert.Contains(t, f.out.String(), "保存できませんでした")
}

func TestRegister_InvalidInviteCode(t *testing.T) {
	f := newFixture(t, "")
	f.api.registerFn = func(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error) {
		return nil, &apiclient.HTTPError{Status: 400, Detail: model.DetailInvalidInviteCode}
	}

	err := f.rt.Register(testContext(t), apiclient.RegisterRequest{Email: "a@b.com", Password: "x", InviteCode: "BAD"})

	require.NoError(t, err)
	assert.Equal(t, "招待コードが間違っています。\n", f.out.String())
	assert.Empty(t, f.nav.History())
	assert.False(t, f.ctrl.IsAuthenticated())
}

func TestRegister_Success_LogsIn(t *testing.T) {
	f := newFixture(t, "")

	require.NoError(t, f.rt.Register(testContext(t), apiclient.RegisterRequest{Email: "a@b.com", Password: "x", InviteCode: "GOOD"}))

	assert.True(t, f.ctrl.IsAuthenticated())
	assert.Equal(t, "/admin", f.nav.Current())
}

func TestLogout_ThenDashboardRedirects(t *testing.T) {
	f := newFixture(t, "")
	f.seed(t, "tok")
	f.rt.Start()
	require.NoError(t, f.ctrl.WaitReady(testContext(t)))

	require.NoError(t, f.rt.Logout())
	require.NoError(t, f.rt.Dashboard(testContext(t)))

	assert.Equal(t, []string{"/login", "/login"}, f.nav.History())
	p, _ := f.persistent.Get()
	c, _ := f.cookie.Get()
	assert.Empty(t, p)
	assert.Empty(t, c)
}

func TestStatus_ShowsUnverifiedClaims(t *testing.T) {
	f := newFixture(t, "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "owner@kamitori.jp",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("unknown-to-client"))
	require.NoError(t, err)
	f.seed(t, token)
	f.rt.Start()

	require.NoError(t, f.rt.Status(testContext(t)))

	out := f.out.String()
	assert.Contains(t, out, "状態: authenticated")
	assert.Contains(t, out, "Cookie: あり")
	assert.Contains(t, out, "アカウント: owner@kamitori.jp")
	assert.Contains(t, out, "有効期限:")
	assert.NotContains(t, out, "期限切れ")
}

func TestStatus_OpaqueToken(t *testing.T) {
	f := newFixture(t, "")
	f.seed(t, "not-a-jwt")
	f.rt.Start()

	require.NoError(t, f.rt.Status(testContext(t)))

	assert.Contains(t, f.out.String(), "形式を読み取れません")
}

// --- トップ画面 ---

func samplePosts() []model.Post {
	return []model.Post{
		{
			ID: 1, ShopID: 2, ImagePath: "static/a.jpg", OriginalText: "こんにちは",
			Translations: []model.Translation{
				{Language: "en", TranslatedContent: "Hello"},
				{Language: "ko", TranslatedContent: "<b>안녕하세요</b>"},
			},
		},
		{ID: 2, ShopID: 2, OriginalText: "さようなら"},
	}
}

func TestHome_ResolvesRequestedLanguage(t *testing.T) {
	f := newFixture(t, "")
	f.api.listPostsFn = func(ctx context.Context, skip, limit int) ([]model.Post, error) {
		return samplePosts(), nil
	}

	require.NoError(t, f.rt.Home(testContext(t), HomeOptions{Lang: "KO"}))

	out := f.out.String()
	assert.Contains(t, out, "  안녕하세요\n")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "  さようなら\n", "missing translation falls back to original")
	assert.Contains(t, out, "http://api.test/static/a.jpg")
}

func TestHome_MarkupOnlyTranslation_ShowsOriginal(t *testing.T) {
	f := newFixture(t, "")
	f.api.listPostsFn = func(ctx context.Context, skip, limit int) ([]model.Post, error) {
		return []model.Post{{
			ID:           9,
			OriginalText: "新メニュー",
			Translations: []model.Translation{{Language: "en", TranslatedContent: "<p></p>"}},
		}}, nil
	}

	require.NoError(t, f.rt.Home(testContext(t), HomeOptions{Lang: "en"}))

	assert.Contains(t, f.out.String(), "  新メニュー\n")
}

func TestHome_PerPostLanguage(t *testing.T) {
	f := newFixture(t, "")
	f.api.listPostsFn = func(ctx context.Context, skip, limit int) ([]model.Post, error) {
		return samplePosts(), nil
	}

	err := f.rt.Home(testContext(t), HomeOptions{PostLang: map[int64]model.LanguageCode{1: "ja"}})

	require.NoError(t, err)
	assert.Contains(t, f.out.String(), "#1 [ja]")
	assert.Contains(t, f.out.String(), "  こんにちは\n")
	assert.Contains(t, f.out.String(), "#2 [en]")
}

func TestHome_UnsupportedLanguage_IsArgumentError(t *testing.T) {
	f := newFixture(t, "")

	err := f.rt.Home(testContext(t), HomeOptions{Lang: "fr"})

	assert.Error(t, err)
}

func TestHome_UpstreamFailure_ShowsEmptyList(t *testing.T) {
	f := newFixture(t, "")
	f.api.listPostsFn = func(ctx context.Context, skip, limit int) ([]model.Post, error) {
		return nil, errors.New("connection refused")
	}

	require.NoError(t, f.rt.Home(testContext(t), HomeOptions{}))

	assert.Contains(t, f.out.String(), "記事はまだありません。")
}

func TestLanguages_ListsSelectorOrder(t *testing.T) {
	f := newFixture(t, "")

	f.rt.Languages()

	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "en")
	assert.Contains(t, lines[4], "日本語")
}

// --- チャット ---

func TestChat_OneShot(t *testing.T) {
	f := newFixture(t, "")
	f.api.chatFn = func(ctx context.Context, message string) (string, error) {
		assert.Equal(t, "おすすめは？", message)
		return "<p>肥後もっこすです</p>", nil
	}

	require.NoError(t, f.rt.Chat(testContext(t), "おすすめは？"))

	out := f.out.String()
	assert.True(t, strings.HasPrefix(out, "コンシェルジュ: "+concierge.Greeting))
	assert.Contains(t, out, "コンシェルジュ: 肥後もっこすです\n")
}

func TestChat_Failure_PrintsApology(t *testing.T) {
	f := newFixture(t, "")
	f.api.chatFn = func(ctx context.Context, message string) (string, error) {
		return "", errors.New("boom")
	}

	require.NoError(t, f.rt.Chat(testContext(t), "Hi"))

	assert.Contains(t, f.out.String(), "コンシェルジュ: "+concierge.Apology)
}

func TestChat_Interactive_SkipsBlankAndStopsOnExit(t *testing.T) {
	f := newFixture(t, "Hi\n   \nThanks\n/exit\nnever sent\n")
	var sent []string
	f.api.chatFn = func(ctx context.Context, message string) (string, error) {
		sent = append(sent, message)
		return "reply to " + message, nil
	}

	require.NoError(t, f.rt.Chat(testContext(t), ""))

	assert.Equal(t, []string{"Hi", "Thanks"}, sent)
	assert.Equal(t, 2, strings.Count(f.out.String(), "コンシェルジュ: reply to"))
}

func TestChat_Interactive_EndsOnEOF(t *testing.T) {
	f := newFixture(t, "Hi")
	calls := 0
	f.api.chatFn = func(ctx context.Context, message string) (string, error) {
		calls++
		return "ok", nil
	}

	require.NoError(t, f.rt.Chat(testContext(t), ""))

	assert.Equal(t, 1, calls)
}

// --- 店舗・記事の管理 ---

func loggedIn(t *testing.T, input string) *fixture {
	t.Helper()
	f := newFixture(t, input)
	f.seed(t, "tok")
	f.rt.Start()
	return f
}

func TestShopNew_Success_NavigatesToAdmin(t *testing.T) {
	f := loggedIn(t, "")

	require.NoError(t, f.rt.ShopNew(testContext(t), model.ShopInput{Name: "雑貨店"}))

	assert.Equal(t, []string{"/admin/shops/new", "/admin"}, f.nav.History())
	assert.Contains(t, f.out.String(), "店舗を登録しました: 1 雑貨店")
}

func TestShopNew_ValidationFailure(t *testing.T) {
	f := loggedIn(t, "")
	f.api.createShopFn = func(ctx context.Context, in model.ShopInput) (*model.Shop, error) {
		return nil, model.NewValidationError("name (required)")
	}

	require.NoError(t, f.rt.ShopNew(testContext(t), model.ShopInput{}))

	assert.Contains(t, f.out.String(), model.MsgInvalidInput)
	assert.Equal(t, "/admin/shops/new", f.nav.Current())
}

func TestShopEdit_UpstreamFailure(t *testing.T) {
	f := loggedIn(t, "")
	f.api.updateShopFn = func(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error) {
		return nil, &apiclient.HTTPError{Status: 500}
	}

	require.NoError(t, f.rt.ShopEdit(testContext(t), 3, model.ShopInput{Category: "雑貨"}))

	assert.Contains(t, f.out.String(), model.MsgShopSaveFailed)
	assert.Equal(t, "/admin/shops/3/edit", f.nav.Current())
}

func TestShopEdit_InvalidID(t *testing.T) {
	f := loggedIn(t, "")

	assert.Error(t, f.rt.ShopEdit(testContext(t), 0, model.ShopInput{}))
}

func TestShopDelete_Confirmation(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		yes         bool
		wantDeleted bool
	}{
		{"確認でyes", "y\n", false, true},
		{"確認でno", "n\n", false, false},
		{"入力なし", "", false, false},
		{"--yes指定", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := loggedIn(t, tt.input)
			deleted := false
			f.api.deleteShopFn = func(ctx context.Context, id int64) error {
				deleted = true
				return nil
			}

			require.NoError(t, f.rt.ShopDelete(testContext(t), 5, tt.yes))

			assert.Equal(t, tt.wantDeleted, deleted)
			if !tt.yes {
				assert.Contains(t, f.out.String(), model.MsgShopDeleteConfirm)
			}
		})
	}
}

func TestShopDelete_Failure(t *testing.T) {
	f := loggedIn(t, "")
	f.api.deleteShopFn = func(ctx context.Context, id int64) error {
		return &apiclient.HTTPError{Status: 500}
	}

	require.NoError(t, f.rt.ShopDelete(testContext(t), 5, true))

	assert.Contains(t, f.out.String(), model.MsgShopDeleteFailed)
}

func TestShopDelete_NotLoggedIn_DoesNotPrompt(t *testing.T) {
	f := newFixture(t, "y\n")
	f.rt.Start()
	f.api.deleteShopFn = func(ctx context.Context, id int64) error {
		t.Error("delete must not be called")
		return nil
	}

	require.NoError(t, f.rt.ShopDelete(testContext(t), 5, false))

	assert.NotContains(t, f.out.String(), model.MsgShopDeleteConfirm)
	assert.Equal(t, "/login", f.nav.Current())
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(path, []byte("JPEGDATA"), 0o600))
	return path
}

func TestPostNew_Success(t *testing.T) {
	f := loggedIn(t, "")
	f.api.createPostFn = func(ctx context.Context, in apiclient.PostInput) (*model.Post, error) {
		assert.Equal(t, int64(2), in.ShopID)
		assert.Equal(t, "photo.jpg", in.Filename)
		data, err := io.ReadAll(in.Image)
		require.NoError(t, err)
		assert.Equal(t, "JPEGDATA", string(data))
		return &model.Post{ID: 7, ShopID: 2}, nil
	}

	err := f.rt.PostNew(testContext(t), PostInput{ShopID: 2, Text: "新メニュー", ImagePath: writeImage(t)})

	require.NoError(t, err)
	assert.Contains(t, f.out.String(), model.MsgPostCreated)
	assert.Equal(t, []string{"/admin/posts/new", "/admin"}, f.nav.History())
}

func TestPostNew_Failure(t *testing.T) {
	f := loggedIn(t, "")
	f.api.createPostFn = func(ctx context.Context, in apiclient.PostInput) (*model.Post, error) {
		return nil, &apiclient.HTTPError{Status: 500}
	}

	require.NoError(t, f.rt.PostNew(testContext(t), PostInput{ShopID: 2, Text: "t", ImagePath: writeImage(t)}))

	assert.Contains(t, f.out.String(), model.MsgPostCreateFailed)
	assert.Equal(t, "/admin/posts/new", f.nav.Current())
}

func TestPostNew_MissingImage_IsArgumentError(t *testing.T) {
	f := loggedIn(t, "")

	err := f.rt.PostNew(testContext(t), PostInput{ShopID: 2, Text: "t", ImagePath: filepath.Join(t.TempDir(), "none.jpg")})

	assert.Error(t, err)
	assert.Empty(t, f.nav.History())
}
