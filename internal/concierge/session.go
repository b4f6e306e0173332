// Package concierge はAIコンシェルジュとの会話状態を管理する。
//
// 会話履歴は追記のみで、送信中は次の送信を受け付けない。
// 応答の失敗も履歴を巻き戻さず、お詫びの発言として追記する。
package concierge

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kamitori/connect/internal/model"
)

const (
	// Greeting は会話開始時にコンシェルジュが表示する挨拶。
	Greeting = "こんにちは！上通商栄会へようこそ。おすすめのお店や観光スポットについて何でも聞いてください！"
	// Apology は応答の取得に失敗した場合にコンシェルジュの発言として追記する文言。
	Apology = "すみません、エラーが発生しました。"
)

// State は送信処理の状態。
type State int

const (
	// Idle は送信を受け付ける状態。
	Idle State = iota
	// Pending は応答待ちの状態。
	Pending
)

// String はログ出力用の状態名を返す。
func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// event は状態遷移のきっかけ。
type event int

const (
	eventSend event = iota
	eventSettle
)

// transition は状態遷移関数。遷移が許可されない場合はfalseを返す。
//
//	Idle --send--> Pending --settle--> Idle
func transition(s State, e event) (State, bool) {
	switch {
	case s == Idle && e == eventSend:
		return Pending, true
	case s == Pending && e == eventSettle:
		return Idle, true
	default:
		return s, false
	}
}

// Replier はユーザーの発言に対する応答を取得する。
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

// ReplierFunc は関数をReplierとして扱うためのアダプタ。
type ReplierFunc func(ctx context.Context, message string) (string, error)

// Reply はReplierを実装する。
func (f ReplierFunc) Reply(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

// Session は1回の利用中の会話。プロセス外には保存しない。
type Session struct {
	id      string
	replier Replier
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	input    string
	messages []model.ChatMessage
}

// NewSession は挨拶を1件含む新しいSessionを生成する。
func NewSession(replier Replier, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:      uuid.NewString(),
		replier: replier,
		logger:  logger,
		messages: []model.ChatMessage{
			{Role: model.RoleAssistant, Content: Greeting},
		},
	}
}

// ID はログ用のセッションIDを返す。
func (s *Session) ID() string {
	return s.id
}

// SetInput は入力欄の内容を更新する。
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

// Input は入力欄の内容を返す。
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// State は送信処理の状態を返す。
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Pending は応答待ちかを返す。
func (s *Session) Pending() bool {
	return s.State() == Pending
}

// Messages は会話履歴のコピーを返す。
func (s *Session) Messages() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Begin は入力欄の内容を送信対象として確定する。
// 入力が空白のみ、または応答待ちの場合は何もせずfalseを返す。
// 受け付けた場合はユーザーの発言を追記し、入力欄を空にして応答待ちにする。
func (s *Session) Begin() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.input) == "" {
		return "", false
	}
	next, ok := transition(s.state, eventSend)
	if !ok {
		return "", false
	}

	text := s.input
	s.messages = append(s.messages, model.ChatMessage{Role: model.RoleUser, Content: text})
	s.input = ""
	s.state = next
	return text, true
}

// Settle は応答を受け取り、コンシェルジュの発言を1件追記して待機状態に戻す。
// errがnilでない場合は応答の代わりにお詫びを追記する。
// 応答待ちでない場合は何もしない。
func (s *Session) Settle(reply string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := transition(s.state, eventSettle)
	if !ok {
		return
	}

	content := reply
	if err != nil {
		s.logger.Error("concierge reply failed",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()),
		)
		content = Apology
	}
	s.messages = append(s.messages, model.ChatMessage{Role: model.RoleAssistant, Content: content})
	s.state = next
}

// Send は入力欄の内容を送信し、応答が確定するまで待つ。
// 受け付けなかった場合はfalseを返す。応答の成否にかかわらず履歴には1件追記される。
func (s *Session) Send(ctx context.Context) bool {
	text, ok := s.Begin()
	if !ok {
		return false
	}

	reply, err := s.replier.Reply(ctx, text)
	s.Settle(reply, err)
	return true
}
