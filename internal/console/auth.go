package console

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kamitori/connect/internal/apiclient"
)

// Register は招待コード付きで管理者アカウントを登録し、そのままログインする。
// 失敗した場合は理由に応じたメッセージを表示し、画面遷移しない。
func (r *Runtime) Register(ctx context.Context, req apiclient.RegisterRequest) error {
	tok, err := r.api.Register(ctx, req)
	if err != nil {
		r.println(apiclient.RegisterMessage(err))
		return nil
	}
	r.completeLogin(tok)
	return nil
}

// Login はメールアドレスとパスワードでログインする。
func (r *Runtime) Login(ctx context.Context, req apiclient.LoginRequest) error {
	tok, err := r.api.Login(ctx, req)
	if err != nil {
		r.println(apiclient.LoginMessage(err))
		return nil
	}
	r.completeLogin(tok)
	return nil
}

// completeLogin はトークンを保存して管理画面へ遷移する。
// 保存に失敗した場合は未ログインのまま遷移しない。
func (r *Runtime) completeLogin(tok *apiclient.Token) {
	if tok == nil || tok.AccessToken == "" {
		r.println("ログイン処理に失敗しました。トークンを受け取れませんでした。")
		return
	}
	if err := r.session.Login(tok.AccessToken); err != nil {
		r.println("ログイン情報を保存できませんでした。保存先の設定を確認してください。")
		return
	}
	r.println("ログインしました。")
}

// Logout はトークンを削除してログイン画面へ遷移する。
// 削除に失敗しても未ログイン状態にする。
func (r *Runtime) Logout() error {
	if err := r.session.Logout(); err != nil {
		r.println("ログイン情報の削除に一部失敗しました。")
		return nil
	}
	r.println("ログアウトしました。")
	return nil
}

// Status は現在の認証状態を表示する。
// トークンの中身は表示のためだけに読み、署名は検証しない。
func (r *Runtime) Status(ctx context.Context) error {
	if err := r.session.WaitReady(ctx); err != nil {
		return err
	}

	_, cookie := r.store.Cookie()
	r.printf("状態: %s\n", r.session.State())
	r.printf("Cookie: %s\n", presence(cookie))

	token := r.session.Token()
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		r.println("トークン: 形式を読み取れません")
		return nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		r.printf("アカウント: %s\n", sub)
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		label := exp.Local().Format("2006-01-02 15:04:05")
		if exp.Before(time.Now()) {
			label += "（期限切れ）"
		}
		r.printf("有効期限: %s\n", label)
	}
	return nil
}

func presence(ok bool) string {
	if ok {
		return "あり"
	}
	return "なし"
}
