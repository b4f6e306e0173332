// Package credential は認証トークンの保存先を管理する。
//
// トークンは永続ストア（再起動後も残る）とCookie（5時間で失効）の2か所に
// 冗長に保存される。Storeはこの2つを常に「両方に同じ値がある」か
// 「両方にない」状態に保つ。
package credential

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnavailable は保存先が無効化されていることを示す。
// 呼び出し側は「トークンなし」として扱う。
var ErrUnavailable = errors.New("credential backend is unavailable")

// Persistent はトークンの永続ストア。
// トークンが存在しない場合のGetは("", nil)を返す。
type Persistent interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// Cookie はトークンを保持するCookieの保存先。
// 失効済みのCookieは存在しないものとして扱う。
type Cookie interface {
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// Store は2か所のトークン保存先を同期させる。
// 書き込みはログイン/ログアウト時のみ発生する。
type Store struct {
	persistent Persistent
	cookie     Cookie
	logger     *slog.Logger
}

// NewStore は新しいStoreを生成する。
func NewStore(persistent Persistent, cookie Cookie, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		persistent: persistent,
		cookie:     cookie,
		logger:     logger,
	}
}

// Save はトークンを永続ストア、Cookieの順に書き込む。
// 永続ストアへの書き込みに失敗した場合はCookieに書き込まない。
// Cookieへの書き込みに失敗した場合は永続ストアの値を取り消す。
func (s *Store) Save(token string) error {
	if token == "" {
		return errors.New("token must not be empty")
	}

	if err := s.persistent.Set(token); err != nil {
		return fmt.Errorf("failed to write persistent credential: %w", err)
	}

	if err := s.cookie.Set(token); err != nil {
		if rbErr := s.persistent.Delete(); rbErr != nil && !errors.Is(rbErr, ErrUnavailable) {
			s.logger.Error("failed to roll back persistent credential",
				slog.String("error", rbErr.Error()),
			)
		}
		return fmt.Errorf("failed to write credential cookie: %w", err)
	}

	return nil
}

// Load は永続ストアからトークンを読み込む。
// 保存先が無効・読み込み失敗の場合もエラーにせず「トークンなし」を返す。
func (s *Store) Load() (string, bool) {
	token, err := s.persistent.Get()
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			s.logger.Warn("failed to read persistent credential",
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return token, token != ""
}

// Cookie はCookie側のトークンを読み込む。
// エッジでのチェックはこちらのみを参照する。
func (s *Store) Cookie() (string, bool) {
	token, err := s.cookie.Get()
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			s.logger.Warn("failed to read credential cookie",
				slog.String("error", err.Error()),
			)
		}
		return "", false
	}
	return token, token != ""
}

// Clear は両方のトークンを削除する。
// 片方の削除に失敗してももう片方の削除を試みる。
// 既に存在しない場合や保存先が無効な場合は成功として扱う。
func (s *Store) Clear() error {
	var errs []error

	if err := s.persistent.Delete(); err != nil && !errors.Is(err, ErrUnavailable) {
		errs = append(errs, fmt.Errorf("failed to delete persistent credential: %w", err))
	}
	if err := s.cookie.Delete(); err != nil && !errors.Is(err, ErrUnavailable) {
		errs = append(errs, fmt.Errorf("failed to delete credential cookie: %w", err))
	}

	return errors.Join(errs...)
}

// Reconcile は2つの保存先の値が食い違っている場合に両方を削除する。
// 削除を行った場合はtrueを返す。
func (s *Store) Reconcile() bool {
	stored, _ := s.Load()
	cookie, _ := s.Cookie()
	if stored == cookie {
		return false
	}

	s.logger.Warn("credential copies diverged, clearing both",
		slog.Bool("persistent_present", stored != ""),
		slog.Bool("cookie_present", cookie != ""),
	)
	if err := s.Clear(); err != nil {
		s.logger.Error("failed to clear diverged credential",
			slog.String("error", err.Error()),
		)
	}
	return true
}

// Token はTokenSourceを実装する。呼び出し時点の永続ストアの値を返す。
func (s *Store) Token() string {
	token, _ := s.Load()
	return token
}
