package console

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/model"
)

// enterAdmin は管理画面の表示前に2段階のチェックを行う。
//
//  1. エッジでのチェック: Cookie側のトークンの有無
//  2. 画面でのチェック: 永続ストアのトークンの有無
//
// どちらの結果でも、初期読み込みの完了を待って2つの保存先を揃えてから遷移する。
// 資格情報が消えた場合はセッションも未ログインに戻す。
// 拒否された場合はログイン画面へ遷移してfalseを返す。
func (r *Runtime) enterAdmin(ctx context.Context, path string) (bool, error) {
	edge := guard.CheckEdge(r.guard, path, func() bool {
		_, ok := r.store.Cookie()
		return ok
	})

	if err := r.session.WaitReady(ctx); err != nil {
		return false, err
	}

	if r.store.Reconcile() {
		r.session.Invalidate()
	}
	if !edge.Allowed {
		r.deny(path, "edge", edge)
		return false, nil
	}

	view := guard.CheckView(r.guard, func() bool {
		_, ok := r.store.Load()
		return ok
	})
	if !view.Allowed {
		r.session.Invalidate()
		r.deny(path, "view", view)
		return false, nil
	}

	r.nav.Push(path)
	return true, nil
}

func (r *Runtime) deny(path, layer string, d guard.Decision) {
	r.logger.Info("admin view denied",
		slog.String("path", path),
		slog.String("layer", layer),
	)
	r.println(model.MsgLoginRequired)
	r.nav.Push(d.Redirect)
}

// Dashboard は管理画面トップを表示する。
func (r *Runtime) Dashboard(ctx context.Context) error {
	ok, err := r.enterAdmin(ctx, r.adminPath)
	if err != nil || !ok {
		return err
	}

	acc, err := r.api.Me(ctx)
	switch {
	case err == nil:
		r.printf("ログイン中: %s\n", acc.Email)
	case apiclient.StatusOf(err) == 401:
		r.println("ログインの有効期限が切れている可能性があります。再度ログインしてください。")
	default:
		r.logger.Warn("failed to load account", slog.String("error", err.Error()))
	}

	shops, err := r.api.ListShops(ctx)
	if err != nil {
		r.logger.Error("failed to load shops",
			slog.Int("upstream_status", apiclient.StatusOf(err)),
			slog.String("error", err.Error()),
		)
		shops = nil
	}

	r.println("店舗一覧")
	if len(shops) == 0 {
		r.println("  店舗はまだ登録されていません。")
		return nil
	}
	for _, s := range shops {
		r.printf("  %4d  %s", s.ID, s.Name)
		if s.Category != "" {
			r.printf("（%s）", s.Category)
		}
		r.println()
	}
	return nil
}

// ShopNew は店舗を登録する。成功した場合は管理画面トップへ遷移する。
func (r *Runtime) ShopNew(ctx context.Context, in model.ShopInput) error {
	ok, err := r.enterAdmin(ctx, r.adminPath+"/shops/new")
	if err != nil || !ok {
		return err
	}

	shop, err := r.api.CreateShop(ctx, in)
	if err != nil {
		r.println(mutationMessage(err, model.MsgShopSaveFailed))
		return nil
	}
	r.printf("店舗を登録しました: %d %s\n", shop.ID, shop.Name)
	r.nav.Push(r.adminPath)
	return nil
}

// ShopEdit は店舗を更新する。inの空のフィールドは変更しない。
func (r *Runtime) ShopEdit(ctx context.Context, id int64, in model.ShopInput) error {
	if id <= 0 {
		return fmt.Errorf("invalid shop id: %d", id)
	}
	ok, err := r.enterAdmin(ctx, fmt.Sprintf("%s/shops/%d/edit", r.adminPath, id))
	if err != nil || !ok {
		return err
	}

	shop, err := r.api.UpdateShop(ctx, id, in)
	if err != nil {
		r.println(mutationMessage(err, model.MsgShopSaveFailed))
		return nil
	}
	r.printf("店舗を更新しました: %d %s\n", shop.ID, shop.Name)
	r.nav.Push(r.adminPath)
	return nil
}

// ShopDelete は確認の上で店舗を削除する。yesがtrueの場合は確認を省略する。
func (r *Runtime) ShopDelete(ctx context.Context, id int64, yes bool) error {
	if id <= 0 {
		return fmt.Errorf("invalid shop id: %d", id)
	}
	ok, err := r.enterAdmin(ctx, r.adminPath)
	if err != nil || !ok {
		return err
	}

	if !yes && !r.confirm(model.MsgShopDeleteConfirm) {
		r.println("削除を取り消しました。")
		return nil
	}

	if err := r.api.DeleteShop(ctx, id); err != nil {
		r.logger.Error("failed to delete shop",
			slog.Int64("shop_id", id),
			slog.Int("upstream_status", apiclient.StatusOf(err)),
			slog.String("error", err.Error()),
		)
		r.println(model.MsgShopDeleteFailed)
		return nil
	}
	r.println("店舗を削除しました。")
	return nil
}

// PostInput は記事作成画面の入力。
type PostInput struct {
	ShopID    int64
	Text      string
	ImagePath string
}

// PostNew は写真とコメントから記事を作成する。
// 作成と翻訳が終わるまで待ち、成功した場合は管理画面トップへ遷移する。
func (r *Runtime) PostNew(ctx context.Context, in PostInput) error {
	if in.ImagePath == "" {
		return fmt.Errorf("image is required")
	}
	f, err := os.Open(in.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	ok, err := r.enterAdmin(ctx, r.adminPath+"/posts/new")
	if err != nil || !ok {
		return err
	}

	r.println("AIが記事を作成しています…")
	post, err := r.api.CreatePost(ctx, apiclient.PostInput{
		ShopID:   in.ShopID,
		Text:     in.Text,
		Filename: filepath.Base(in.ImagePath),
		Image:    f,
	})
	if err != nil {
		r.println(mutationMessage(err, model.MsgPostCreateFailed))
		return nil
	}
	r.logger.Info("post created",
		slog.Int64("post_id", post.ID),
		slog.Int("translations", len(post.Translations)),
	)
	r.println(model.MsgPostCreated)
	r.nav.Push(r.adminPath)
	return nil
}

// confirm はy/nの確認を求める。入力が終わった場合はnoとして扱う。
func (r *Runtime) confirm(prompt string) bool {
	r.printf("%s [y/N]: ", prompt)
	line, err := r.readLine()
	if err != nil {
		r.println()
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// mutationMessage は更新系の失敗を画面表示用メッセージに変換する。
// 送信前の入力検証で弾かれた場合のみ入力の確認を促す。
func mutationMessage(err error, fallback string) string {
	if apiclient.IsValidation(err) {
		return model.MsgInvalidInput
	}
	return fallback
}
