package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/kamitori/connect/internal/model"
)

// HTTPError はAPIサーバーが2xx以外を返したことを表す。
// DetailにはFastAPI形式のレスポンスのdetail文字列が入る。
type HTTPError struct {
	Method string
	Path   string
	Status int
	Detail string
}

// Error はerrorインターフェースを実装する。
func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
}

// StatusOf はerrのHTTPステータスを返す。通信エラーなどHTTPErrorでない場合は0。
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// DetailOf はerrのdetail文字列を返す。HTTPErrorでない場合は空文字列。
func DetailOf(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Detail
	}
	return ""
}

// IsValidation は送信前の入力検証で弾かれたエラーかを返す。
func IsValidation(err error) bool {
	var ae *model.APIError
	return errors.As(err, &ae) && ae.Code == model.ErrCodeValidationFailed
}

// RegisterMessage は登録失敗を画面表示用メッセージに変換する。
func RegisterMessage(err error) string {
	if IsValidation(err) {
		return model.MsgInvalidInput
	}
	return model.RegisterErrorMessage(StatusOf(err), DetailOf(err))
}

// LoginMessage はログイン失敗を画面表示用メッセージに変換する。
func LoginMessage(err error) string {
	if IsValidation(err) {
		return model.MsgInvalidInput
	}
	return model.LoginErrorMessage(StatusOf(err))
}

// parseDetail はFastAPIのエラーレスポンスからdetailを取り出す。
// detailが文字列でない場合（422の検証エラー等）はJSONのまま返す。
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}

// validationError はvalidatorのエラーを入力検証エラーに変換する。
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return model.NewValidationError(fmt.Sprintf("%s (%s)", verrs[0].Field(), verrs[0].Tag()))
	}
	return model.NewValidationError(err.Error())
}
