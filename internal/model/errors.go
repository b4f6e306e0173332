// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeShopNotFound     = "SHOP_NOT_FOUND"
	ErrCodeInvalidShopID    = "INVALID_SHOP_ID"
)

// アップストリームAPIが返すdetail文字列。
// 登録画面ではこの文字列をパターンマッチしてメッセージを出し分ける。
const (
	DetailInvalidInviteCode = "Invalid invitation code"
	DetailEmailRegistered   = "Email already registered"
	DetailIncorrectLogin    = "Incorrect email or password"
	DetailShopNotFound      = "Shop not found"
)

// 利用者に表示する固定メッセージ
const (
	MsgInvalidInviteCode   = "招待コードが間違っています。"
	MsgEmailRegistered     = "このメールアドレスは既に登録されています。"
	MsgRegisterRejected    = "登録に失敗しました。入力内容を確認してください。"
	MsgRegisterFailed      = "登録処理に失敗しました。サーバーエラーの可能性があります。"
	MsgIncorrectLogin      = "メールアドレスまたはパスワードが間違っています。"
	MsgLoginFailed         = "ログイン処理に失敗しました。サーバーエラーの可能性があります。"
	MsgInvalidInput        = "入力内容を確認してください。"
	MsgShopSaveFailed      = "店舗の保存に失敗しました。"
	MsgShopDeleteFailed    = "店舗の削除に失敗しました。"
	MsgShopDeleteConfirm   = "本当にこの店舗を削除してもよろしいですか？"
	MsgPostCreated         = "AIによる記事作成と翻訳が完了しました！"
	MsgPostCreateFailed    = "記事の作成に失敗しました。"
	MsgLoginRequired       = "ログインしてください。"
)

// RegisterErrorMessage は登録APIの失敗を画面表示用メッセージに変換する。
// statusが0の場合は通信エラーを表す。
// 400以外のステータスと通信エラーはサーバーエラーとして扱う。
func RegisterErrorMessage(status int, detail string) string {
	if status != 400 {
		return MsgRegisterFailed
	}
	switch detail {
	case DetailInvalidInviteCode:
		return MsgInvalidInviteCode
	case DetailEmailRegistered:
		return MsgEmailRegistered
	default:
		return MsgRegisterRejected
	}
}

// LoginErrorMessage はログインAPIの失敗を画面表示用メッセージに変換する。
func LoginErrorMessage(status int) string {
	if status == 400 || status == 401 {
		return MsgIncorrectLogin
	}
	return MsgLoginFailed
}

// NewUnauthenticatedError は未ログインエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログイン画面からログインし直してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   MsgInvalidInput,
	}
}

// NewUpstreamFailedError はAPIサーバー呼び出し失敗エラーを生成する。
// messageには画面に出す固定メッセージを渡す。
func NewUpstreamFailedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  message,
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewShopNotFoundError は店舗未検出エラーを生成する。
func NewShopNotFoundError(shopID int64) *APIError {
	return &APIError{
		Code:     ErrCodeShopNotFound,
		Message:  fmt.Sprintf("指定された店舗が見つかりません: %d", shopID),
		Category: "validation",
		Action:   "店舗IDを確認してください。",
	}
}

// NewInvalidShopIDError は店舗IDの形式エラーを生成する。
func NewInvalidShopIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidShopID,
		Message:  fmt.Sprintf("無効な店舗IDです: %s", raw),
		Category: "validation",
		Action:   "店舗IDには数値を指定してください。",
	}
}
