package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/concierge"
	"github.com/kamitori/connect/internal/localize"
	"github.com/kamitori/connect/internal/model"
)

// exitCommand はチャットを終了する入力。
const exitCommand = "/exit"

// HomeOptions はトップ画面の表示オプション。
type HomeOptions struct {
	// Lang は全記事の表示言語。空の場合は初期言語。
	Lang model.LanguageCode
	// PostLang は記事ごとの表示言語。Langより優先する。
	PostLang map[int64]model.LanguageCode
	Skip     int
	Limit    int
}

// Home は記事一覧を表示する。
// 取得に失敗した場合は空の一覧として表示する。
func (r *Runtime) Home(ctx context.Context, opts HomeOptions) error {
	lang := r.lang
	if opts.Lang != "" {
		lang = model.LanguageCode(strings.ToLower(string(opts.Lang)))
	}
	if !localize.IsSupported(lang) {
		return fmt.Errorf("unsupported language: %q", opts.Lang)
	}

	selections := localize.NewSelections(lang)
	for id, l := range opts.PostLang {
		if !localize.IsSupported(l) {
			return fmt.Errorf("unsupported language for post %d: %q", id, l)
		}
		selections.Set(id, l)
	}

	posts, err := r.api.ListPosts(ctx, opts.Skip, opts.Limit)
	if err != nil {
		r.logger.Error("failed to load posts",
			slog.Int("upstream_status", apiclient.StatusOf(err)),
			slog.String("error", err.Error()),
		)
		posts = nil
	}

	r.println("上通商栄会 お知らせ")
	if len(posts) == 0 {
		r.println("記事はまだありません。")
		return nil
	}
	for _, p := range posts {
		r.printPost(p, selections.Get(p.ID), selections.DisplayContent(p, r.sanitizer.Sanitize))
	}
	return nil
}

func (r *Runtime) printPost(p model.Post, lang model.LanguageCode, content string) {
	r.printf("\n#%d [%s] shop=%d", p.ID, lang, p.ShopID)
	if !p.CreatedAt.IsZero() {
		r.printf(" %s", p.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	r.println()
	if url := p.ImageURL(r.apiBaseURL); url != "" {
		r.printf("  %s\n", url)
	}
	for _, line := range strings.Split(content, "\n") {
		r.printf("  %s\n", line)
	}
}

// Languages は選択可能な表示言語を表示する。
func (r *Runtime) Languages() {
	for _, l := range localize.Languages {
		r.printf("%s %-6s %s\n", l.Flag, l.Code, l.Label)
	}
}

// Chat はコンシェルジュとの会話を行う。
// messageが空でない場合は1回だけ送信して終了する。
// 空の場合は入力が終わるか/exitが入力されるまで対話する。
func (r *Runtime) Chat(ctx context.Context, message string) error {
	s := concierge.NewSession(concierge.ReplierFunc(r.reply), r.logger)
	r.printMessage(s.Messages()[0])

	if message != "" {
		return r.send(ctx, s, message)
	}

	for {
		r.printf("> ")
		line, err := r.readLine()
		if err != nil {
			r.println()
			return nil
		}
		if strings.TrimSpace(line) == exitCommand {
			return nil
		}
		if err := r.send(ctx, s, line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *Runtime) send(ctx context.Context, s *concierge.Session, text string) error {
	s.SetInput(text)
	before := len(s.Messages())
	if !s.Send(ctx) {
		return nil
	}
	msgs := s.Messages()
	// ユーザーの発言は入力済みなので、応答のみ表示する
	for _, m := range msgs[before+1:] {
		r.printMessage(m)
	}
	return nil
}

func (r *Runtime) reply(ctx context.Context, message string) (string, error) {
	reply, err := r.api.Chat(ctx, message)
	if err != nil {
		return "", err
	}
	return r.sanitizer.Sanitize(reply), nil
}

func (r *Runtime) printMessage(m model.ChatMessage) {
	prefix := "あなた"
	if m.Role == model.RoleAssistant {
		prefix = "コンシェルジュ"
	}
	r.printf("%s: %s\n", prefix, m.Content)
}
