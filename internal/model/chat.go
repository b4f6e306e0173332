// Package model はドメインモデルを定義する。
package model

// Role はチャットメッセージの発言者。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage はコンシェルジュとの会話の1発言。
// 会話履歴に追加された後は変更しない。
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
