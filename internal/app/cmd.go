// Package app はコマンドラインの構成と各モードの起動を行う。
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/console"
	"github.com/kamitori/connect/internal/model"
)

// NewRootCmd はkamitoriコマンドのルートを生成する。
func NewRootCmd(s Streams) *cobra.Command {
	root := &cobra.Command{
		Use:           "kamitori",
		Short:         "上通コネクトのクライアント",
		Long:          "上通商栄会のお知らせ閲覧、AIコンシェルジュ、店舗管理を行うクライアント。",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(s.In)
	root.SetOut(s.Out)
	root.SetErr(s.Err)

	root.AddCommand(
		newServeCommand(s),
		newHealthcheckCommand(),
		newHomeCommand(s),
		newLanguagesCommand(s),
		newChatCommand(s),
		newRegisterCommand(s),
		newLoginCommand(s),
		newLogoutCommand(s),
		newStatusCommand(s),
		newAdminCommand(s),
		newShopCommand(s),
		newPostCommand(s),
	)

	return root
}

// withConsole は設定を読み込み、コンソールの実行環境を組み立ててfnを実行する。
// ログは画面出力と混ざらないよう標準エラー出力に書く。
func withConsole(cmd *cobra.Command, s Streams, fn func(ctx context.Context, rt *console.Runtime) error) error {
	cfg, l, err := Init(s.Err)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	rt, err := newConsole(cfg, s, l)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), rt)
}

func newServeCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "管理画面の前段に置くエッジサーバーを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := Init(s.Out)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			l.Info("starting application",
				slog.String("command", "serve"),
				slog.String("port", cfg.ServerPort),
				slog.String("base_url", cfg.BaseURL),
			)
			return runServe(cmd.Context(), cfg, l)
		},
	}
}

func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "エッジサーバーのヘルスチェックを行う",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(healthcheckPort())
		},
	}
}

func newHomeCommand(s Streams) *cobra.Command {
	var (
		lang     string
		postLang []string
		skip     int
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "home",
		Short: "お知らせ（記事一覧）を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			perPost, err := parsePostLang(postLang)
			if err != nil {
				return err
			}
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.Home(ctx, console.HomeOptions{
					Lang:     model.LanguageCode(lang),
					PostLang: perPost,
					Skip:     skip,
					Limit:    limit,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&lang, "lang", "l", "", "display language (en, zh-tw, zh-cn, ko, ja)")
	cmd.Flags().StringArrayVar(&postLang, "post-lang", nil, "per-post language as ID=LANG (repeatable)")
	cmd.Flags().IntVar(&skip, "skip", 0, "number of posts to skip")
	cmd.Flags().IntVar(&limit, "limit", apiclient.DefaultPageLimit, "number of posts to fetch")
	return cmd
}

// parsePostLang は "ID=LANG" 形式の指定を解析する。
func parsePostLang(values []string) (map[int64]model.LanguageCode, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[int64]model.LanguageCode, len(values))
	for _, v := range values {
		rawID, lang, ok := strings.Cut(v, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --post-lang %q: want ID=LANG", v)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid post id in --post-lang %q", v)
		}
		out[id] = model.LanguageCode(strings.ToLower(strings.TrimSpace(lang)))
	}
	return out, nil
}

func newLanguagesCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "選択できる表示言語を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				rt.Languages()
				return nil
			})
		},
	}
}

func newChatCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "AIコンシェルジュと会話する",
		Long:  "メッセージを指定すると1回だけ質問する。省略すると/exitを入力するまで対話する。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.Chat(ctx, strings.Join(args, " "))
			})
		},
	}
}

func newRegisterCommand(s Streams) *cobra.Command {
	var req apiclient.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "招待コードで管理者アカウントを登録する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				if req.Password == "" {
					p, err := rt.Prompt("パスワード")
					if err != nil {
						return fmt.Errorf("password is required")
					}
					req.Password = p
				}
				return rt.Register(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&req.InviteCode, "invite-code", "", "invitation code")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("invite-code")
	return cmd
}

func newLoginCommand(s Streams) *cobra.Command {
	var req apiclient.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "管理者としてログインする",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				if req.Password == "" {
					p, err := rt.Prompt("パスワード")
					if err != nil {
						return fmt.Errorf("password is required")
					}
					req.Password = p
				}
				return rt.Login(ctx, req)
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "ログアウトする",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.Logout()
			})
		},
	}
}

func newStatusCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "ログイン状態を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.Status(ctx)
			})
		},
	}
}

func newAdminCommand(s Streams) *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "管理画面（店舗一覧）を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.Dashboard(ctx)
			})
		},
	}
}

func newShopCommand(s Streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shop",
		Short: "店舗の管理",
	}

	cmd.AddCommand(
		newShopNewCommand(s),
		newShopEditCommand(s),
		newShopDeleteCommand(s),
	)

	return cmd
}

// bindShopFlags は店舗の入力項目をフラグとして登録する。
func bindShopFlags(cmd *cobra.Command, in *model.ShopInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "shop name")
	cmd.Flags().StringVar(&in.Category, "category", "", "category")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.Location, "location", "", "location")
	cmd.Flags().StringVar(&in.MapURL, "map-url", "", "map URL")
	cmd.Flags().StringVar(&in.ReservationURL, "reservation-url", "", "reservation URL")
}

func newShopNewCommand(s Streams) *cobra.Command {
	var in model.ShopInput

	cmd := &cobra.Command{
		Use:   "new",
		Short: "店舗を登録する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.ShopNew(ctx, in)
			})
		},
	}

	bindShopFlags(cmd, &in)
	return cmd
}

func newShopEditCommand(s Streams) *cobra.Command {
	var in model.ShopInput

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "店舗を更新する（指定した項目のみ）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseShopID(args[0])
			if err != nil {
				return err
			}
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.ShopEdit(ctx, id, in)
			})
		},
	}

	bindShopFlags(cmd, &in)
	return cmd
}

func newShopDeleteCommand(s Streams) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "店舗を削除する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseShopID(args[0])
			if err != nil {
				return err
			}
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.ShopDelete(ctx, id, yes)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func parseShopID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid shop id: %q", raw)
	}
	return id, nil
}

func newPostCommand(s Streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "記事の管理",
	}

	cmd.AddCommand(newPostNewCommand(s))
	return cmd
}

func newPostNewCommand(s Streams) *cobra.Command {
	var in console.PostInput

	cmd := &cobra.Command{
		Use:   "new",
		Short: "写真とコメントからAIで記事を作成する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd, s, func(ctx context.Context, rt *console.Runtime) error {
				return rt.PostNew(ctx, in)
			})
		},
	}

	cmd.Flags().Int64Var(&in.ShopID, "shop-id", 0, "shop ID")
	cmd.Flags().StringVar(&in.Text, "text", "", "comment for the article")
	cmd.Flags().StringVar(&in.ImagePath, "image", "", "path to the photo")
	_ = cmd.MarkFlagRequired("shop-id")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
