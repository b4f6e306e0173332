// Package session はクライアント全体の認証状態を管理する。
//
// 認証状態はcredential.Storeに保存されたトークンから導出される。
// 状態の変更はLogin/Logoutと起動時のHydrateのみで行われる。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State は認証状態を表す。
type State int

const (
	// Unauthenticated は未ログイン状態。
	Unauthenticated State = iota
	// Authenticated はトークンを保持している状態。
	Authenticated
)

// String はログ出力用の状態名を返す。
func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// CredentialStore はControllerが必要とするトークン保存先のインターフェース。
// credential.Storeの部分集合として定義する。
type CredentialStore interface {
	Save(token string) error
	Load() (string, bool)
	Clear() error
}

// Navigator は画面遷移の副作用を担う。
type Navigator interface {
	Push(path string)
}

// Paths はログイン/ログアウト後の遷移先。
type Paths struct {
	Admin string // ログイン後の遷移先
	Login string // ログアウト後の遷移先
}

// DefaultPaths はデフォルトの遷移先を返す。
func DefaultPaths() Paths {
	return Paths{Admin: "/admin", Login: "/login"}
}

// Controller はプロセス全体で1つの認証状態を保持する。
type Controller struct {
	store  CredentialStore
	nav    Navigator
	paths  Paths
	logger *slog.Logger

	mu      sync.RWMutex
	token   string
	changed bool // Login/Logoutが一度でも呼ばれたか

	hydrateOnce sync.Once
	ready       chan struct{}
}

// NewController は未ログイン状態のControllerを生成する。
// 保存済みトークンの読み込みはHydrateで行う。
func NewController(store CredentialStore, nav Navigator, paths Paths, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		nav:    nav,
		paths:  paths,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Hydrate は保存済みトークンを読み込み、存在すれば認証済み状態に遷移する。
// 何度呼ばれても読み込みは1回だけ行われる。完了するとReadyがcloseされる。
func (c *Controller) Hydrate() {
	c.hydrateOnce.Do(func() {
		defer close(c.ready)

		token, ok := c.store.Load()
		if !ok {
			return
		}

		c.mu.Lock()
		// Hydrate完了前にLogin/Logoutが呼ばれていた場合はそちらを優先する
		if !c.changed {
			c.token = token
		}
		c.mu.Unlock()

		c.logger.Debug("session hydrated from persistent store")
	})
}

// Ready は初期読み込みの完了を通知するチャネルを返す。
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// WaitReady は初期読み込みの完了を待つ。
func (c *Controller) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login はトークンを保存して認証済み状態に遷移し、管理画面へ遷移する。
// 保存に失敗した場合は状態を変えずにエラーを返す。
func (c *Controller) Login(token string) error {
	if err := c.store.Save(token); err != nil {
		c.logger.Warn("login failed to persist credential",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to save credential: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.changed = true
	c.mu.Unlock()

	c.logger.Info("logged in")
	c.nav.Push(c.paths.Admin)
	return nil
}

// Logout はトークンを削除して未ログイン状態に遷移し、ログイン画面へ遷移する。
// 削除に失敗した場合もメモリ上の状態は未ログインにする。
func (c *Controller) Logout() error {
	err := c.store.Clear()
	if err != nil {
		c.logger.Error("logout failed to clear credential",
			slog.String("error", err.Error()),
		)
	}

	c.mu.Lock()
	c.token = ""
	c.changed = true
	c.mu.Unlock()

	c.logger.Info("logged out")
	c.nav.Push(c.paths.Login)
	return err
}

// Invalidate は保存先の削除を伴わずに未ログイン状態へ戻す。
// 画面遷移時のチェックで資格情報の消失や不一致を検出した場合に使う。遷移はガード側が行う。
func (c *Controller) Invalidate() {
	c.mu.Lock()
	had := c.token != ""
	c.token = ""
	c.changed = true
	c.mu.Unlock()

	if had {
		c.logger.Info("session invalidated at guard check")
	}
}

// IsAuthenticated はトークンを保持しているかを返す。
func (c *Controller) IsAuthenticated() bool {
	return c.Token() != ""
}

// Token は現在のトークンを返す。未ログインの場合は空文字列。
func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// State は現在の認証状態を返す。
func (c *Controller) State() State {
	if c.IsAuthenticated() {
		return Authenticated
	}
	return Unauthenticated
}
