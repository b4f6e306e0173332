// Package console はコンソール版クライアントの画面（ビュー）を提供する。
//
// Webクライアントの各ページに相当する画面を、1コマンドにつき1画面として実行する。
// 資格情報はcredential.Storeに保存され、認証状態はsession.Controllerが保持する。
// 管理画面はguardの2段階チェックを通過した場合のみ表示する。
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/credential"
	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
	"github.com/kamitori/connect/internal/session"
)

// API はコンソールが使うAPIクライアントのインターフェース。
// *apiclient.Clientが実装する。
type API interface {
	Register(ctx context.Context, req apiclient.RegisterRequest) (*apiclient.Token, error)
	Login(ctx context.Context, req apiclient.LoginRequest) (*apiclient.Token, error)
	Me(ctx context.Context) (*model.Account, error)

	ListShops(ctx context.Context) ([]model.Shop, error)
	GetShop(ctx context.Context, id int64) (*model.Shop, error)
	CreateShop(ctx context.Context, in model.ShopInput) (*model.Shop, error)
	UpdateShop(ctx context.Context, id int64, in model.ShopInput) (*model.Shop, error)
	DeleteShop(ctx context.Context, id int64) error

	ListPosts(ctx context.Context, skip, limit int) ([]model.Post, error)
	CreatePost(ctx context.Context, in apiclient.PostInput) (*model.Post, error)

	Chat(ctx context.Context, message string) (string, error)
}

// Navigator はコンソール上の画面遷移を記録する。
// session.Navigatorを実装する。
type Navigator struct {
	out io.Writer

	mu      sync.Mutex
	history []string
}

// NewNavigator は新しいNavigatorを生成する。遷移先はoutに表示する。
func NewNavigator(out io.Writer) *Navigator {
	if out == nil {
		out = io.Discard
	}
	return &Navigator{out: out}
}

// Push は遷移を記録する。
func (n *Navigator) Push(path string) {
	n.mu.Lock()
	n.history = append(n.history, path)
	n.mu.Unlock()
	fmt.Fprintf(n.out, "→ %s\n", path)
}

// Current は最後の遷移先を返す。遷移していない場合は空文字列。
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) == 0 {
		return ""
	}
	return n.history[len(n.history)-1]
}

// History は遷移履歴のコピーを返す。
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Deps はRuntimeの依存関係。
type Deps struct {
	API        API
	Store      *credential.Store
	Session    *session.Controller
	Navigator  *Navigator
	Guard      guard.Config
	Sanitizer  security.ContentSanitizerService
	APIBaseURL string
	AdminPath  string
	// DefaultLanguage は記事の初期表示言語。
	DefaultLanguage model.LanguageCode

	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// Runtime はコンソールクライアントの実行環境。
type Runtime struct {
	api        API
	store      *credential.Store
	session    *session.Controller
	nav        *Navigator
	guard      guard.Config
	sanitizer  security.ContentSanitizerService
	apiBaseURL string
	adminPath  string
	lang       model.LanguageCode

	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// New は新しいRuntimeを生成する。
func New(deps Deps) *Runtime {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	in := deps.In
	if in == nil {
		in = strings.NewReader("")
	}
	out := deps.Out
	if out == nil {
		out = io.Discard
	}
	sanitizer := deps.Sanitizer
	if sanitizer == nil {
		sanitizer = security.NewContentSanitizer()
	}
	adminPath := deps.AdminPath
	if adminPath == "" {
		adminPath = deps.Guard.ProtectedPrefix
	}
	lang := deps.DefaultLanguage
	if lang == "" {
		lang = model.DefaultLanguage
	}

	return &Runtime{
		api:        deps.API,
		store:      deps.Store,
		session:    deps.Session,
		nav:        deps.Navigator,
		guard:      deps.Guard,
		sanitizer:  sanitizer,
		apiBaseURL: deps.APIBaseURL,
		adminPath:  adminPath,
		lang:       lang,
		in:         bufio.NewReader(in),
		out:        out,
		logger:     logger,
	}
}

// Start は保存済みトークンの読み込みを開始する。
// 管理画面は読み込み完了を待ってから表示する。
func (r *Runtime) Start() {
	go r.session.Hydrate()
}

func (r *Runtime) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runtime) println(args ...any) {
	fmt.Fprintln(r.out, args...)
}

// readLine は入力から1行を読む。入力が終わった場合はio.EOFを返す。
func (r *Runtime) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Prompt はlabelを表示して1行を読む。
func (r *Runtime) Prompt(label string) (string, error) {
	r.printf("%s: ", label)
	line, err := r.readLine()
	if err != nil {
		r.println()
		return "", err
	}
	return strings.TrimSpace(line), nil
}
