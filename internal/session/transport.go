package session

import "net/http"

// TokenSource は送信時点のトークンを返す。
// トークンがない場合は空文字列を返す。
type TokenSource interface {
	Token() string
}

// TokenFunc は関数をTokenSourceとして扱うためのアダプタ。
type TokenFunc func() string

// Token はTokenSourceを実装する。
func (f TokenFunc) Token() string {
	return f()
}

// NavigatorFunc は関数をNavigatorとして扱うためのアダプタ。
type NavigatorFunc func(path string)

// Push はNavigatorを実装する。
func (f NavigatorFunc) Push(path string) {
	f(path)
}

// Transport は送信のたびにトークンを読み、Bearerヘッダとして付与するRoundTripper。
// トークンがない場合はヘッダなしで送信し、拒否するかはサーバーに委ねる。
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
}

// NewTransport は新しいTransportを生成する。baseがnilの場合はhttp.DefaultTransportを使う。
func NewTransport(source TokenSource, base http.RoundTripper) *Transport {
	return &Transport{Source: source, Base: base}
}

// RoundTrip はhttp.RoundTripperを実装する。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := ""
	if t.Source != nil {
		token = t.Source.Token()
	}
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	// RoundTripperはリクエストを変更してはならないため複製する
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return base.RoundTrip(clone)
}
