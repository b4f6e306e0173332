package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	// CookieName はトークンを保持するCookieの名前。
	CookieName = "token"
	// DefaultCookieMaxAge はCookieの有効期間（秒）。5時間。
	DefaultCookieMaxAge = 18000

	cookieFileName = "cookies.json"
)

// NewHTTPCookie はトークンを保持するCookieを生成する。
// path=/、SameSite=Laxで発行する。
func NewHTTPCookie(token string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredHTTPCookie はトークンCookieを削除するためのCookieを生成する。
func ExpiredHTTPCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// cookieRecord はCookieファイルの保存形式。
type cookieRecord struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	MaxAge   int       `json:"max_age"`
	SameSite string    `json:"same_site"`
	Expires  time.Time `json:"expires"`
}

// CookieFile はコンソールクライアントのCookie保存先。
// max-ageから計算した失効時刻を記録し、失効後は存在しないものとして扱う。
type CookieFile struct {
	dir    string
	maxAge int
	now    func() time.Time
}

// NewCookieFile は新しいCookieFileを生成する。
// dirが空の場合は保存先が無効な状態になる。
func NewCookieFile(dir string, maxAge int) *CookieFile {
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	return &CookieFile{
		dir:    dir,
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (c *CookieFile) path() string {
	return filepath.Join(c.dir, cookieFileName)
}

// Get は失効していないトークンCookieの値を返す。
func (c *CookieFile) Get() (string, error) {
	if c.dir == "" {
		return "", ErrUnavailable
	}

	data, err := os.ReadFile(c.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read cookie file: %w", err)
	}

	var rec cookieRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("failed to parse cookie file: %w", err)
	}

	if rec.Name != CookieName || !c.now().Before(rec.Expires) {
		return "", nil
	}
	return rec.Value, nil
}

// Set はトークンCookieを書き込む。失効時刻は現在時刻+max-age。
func (c *CookieFile) Set(token string) error {
	if c.dir == "" {
		return ErrUnavailable
	}

	rec := cookieRecord{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   c.maxAge,
		SameSite: "Lax",
		Expires:  c.now().Add(time.Duration(c.maxAge) * time.Second),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode cookie: %w", err)
	}
	return writeFileAtomic(c.dir, cookieFileName, data)
}

// Delete はトークンCookieを削除する。存在しない場合も成功とする。
func (c *CookieFile) Delete() error {
	if c.dir == "" {
		return ErrUnavailable
	}
	return removeIfExists(c.path())
}
