// Package guard は管理画面へのアクセスを制御する。
//
// 2段階のチェックを行う。エッジでのチェックはページ処理の前にCookieだけを見て、
// 画面でのチェックは管理画面の表示開始時に永続ストアを見る。
// どちらもトークンの有無だけを確認し、正当性の検証はAPIサーバーに委ねる。
package guard

import (
	"net/http"
	"strings"

	"github.com/kamitori/connect/internal/credential"
)

// Presence はトークンの有無を返す述語。
// 2つのチェックは同じシグネチャで異なる保存先を参照する。
type Presence func() bool

// Decision はチェックの結果。
type Decision struct {
	Allowed  bool
	Redirect string // Allowed=falseの場合の遷移先
}

// Config はガードの設定。
type Config struct {
	ProtectedPrefix string // 保護対象のパス接頭辞（例: /admin）
	LoginPath       string // 未ログイン時の遷移先
}

// DefaultConfig はデフォルト設定を返す。
func DefaultConfig() Config {
	return Config{ProtectedPrefix: "/admin", LoginPath: "/login"}
}

// IsProtected はpathが保護対象かを返す。
// /admin と /admin/... は対象、/administrator は対象外。
func IsProtected(prefix, path string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// CheckEdge はエッジでのチェックを行う。
// 保護対象のパスでCookieのトークンがなければログイン画面への遷移を返す。
func CheckEdge(cfg Config, path string, cookiePresent Presence) Decision {
	if !IsProtected(cfg.ProtectedPrefix, path) {
		return Decision{Allowed: true}
	}
	if !cookiePresent() {
		return Decision{Redirect: cfg.LoginPath}
	}
	return Decision{Allowed: true}
}

// CheckView は管理画面の表示開始時のチェックを行う。
// 永続ストアのトークンがなければログイン画面への遷移を返す。
func CheckView(cfg Config, storedPresent Presence) Decision {
	if !storedPresent() {
		return Decision{Redirect: cfg.LoginPath}
	}
	return Decision{Allowed: true}
}

// RequestCookie はリクエストのトークンCookieの有無を返すPresenceを生成する。
func RequestCookie(r *http.Request) Presence {
	return func() bool {
		c, err := r.Cookie(credential.CookieName)
		return err == nil && c.Value != ""
	}
}

// RedirectRecorder はエッジでのリダイレクトを記録する。
type RedirectRecorder interface {
	RecordGuardRedirect(layer string)
}

// EdgeMiddleware はエッジでのチェックを行うHTTPミドルウェアを返す。
// 保護対象のパスでトークンCookieがない場合は307でログイン画面へリダイレクトする。
// recorderはnilでもよい。
func EdgeMiddleware(cfg Config, recorder RedirectRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := CheckEdge(cfg, r.URL.Path, RequestCookie(r))
			if !d.Allowed {
				if recorder != nil {
					recorder.RecordGuardRedirect("edge")
				}
				http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
