package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kamitori/connect/internal/apiclient"
	"github.com/kamitori/connect/internal/config"
	"github.com/kamitori/connect/internal/console"
	"github.com/kamitori/connect/internal/credential"
	"github.com/kamitori/connect/internal/guard"
	"github.com/kamitori/connect/internal/handler"
	"github.com/kamitori/connect/internal/logger"
	"github.com/kamitori/connect/internal/metrics"
	"github.com/kamitori/connect/internal/middleware"
	"github.com/kamitori/connect/internal/model"
	"github.com/kamitori/connect/internal/security"
	"github.com/kamitori/connect/internal/session"
)

// Streams はコマンドの入出力先。
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再構成する
	l := logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, l, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。
func Run(ctx context.Context, s Streams, args []string) error {
	root := NewRootCmd(s)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// guardConfig はConfigからガードの設定を組み立てる。
func guardConfig(cfg *config.Config) guard.Config {
	return guard.Config{
		ProtectedPrefix: cfg.ProtectedPrefix,
		LoginPath:       cfg.LoginPath,
	}
}

// newClient はAPIクライアントを生成する。
// tokensがnilの場合はリクエストごとのコンテキストのトークンだけを使う。
func newClient(cfg *config.Config, tokens session.TokenSource, observer apiclient.Observer, l *slog.Logger) (*apiclient.Client, error) {
	return apiclient.New(apiclient.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Tokens:  tokens,
		Breaker: apiclient.BreakerConfig{
			ConsecutiveFailures: uint32(max(cfg.BreakerFailures, 0)),
			Timeout:             cfg.BreakerTimeout,
		},
		Observer: observer,
	}, l)
}

// newConsole はコンソールの実行環境を組み立て、保存済みトークンの読み込みを開始する。
func newConsole(cfg *config.Config, s Streams, l *slog.Logger) (*console.Runtime, error) {
	dir := cfg.CredentialDir()
	if dir == "" {
		l.Warn("credential persistence is disabled; login will not be kept")
	}
	store := credential.NewStore(
		credential.NewFileStore(dir),
		credential.NewCookieFile(dir, cfg.CookieMaxAge),
		l,
	)

	nav := console.NewNavigator(s.Out)
	ctrl := session.NewController(store, nav, session.Paths{
		Admin: cfg.AdminPath,
		Login: cfg.LoginPath,
	}, l)

	client, err := newClient(cfg, ctrl, nil, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	rt := console.New(console.Deps{
		API:             client,
		Store:           store,
		Session:         ctrl,
		Navigator:       nav,
		Guard:           guardConfig(cfg),
		Sanitizer:       security.NewContentSanitizer(),
		APIBaseURL:      client.BaseURL(),
		AdminPath:       cfg.AdminPath,
		DefaultLanguage: model.LanguageCode(cfg.DefaultLanguage),
		In:              s.In,
		Out:             s.Out,
		Logger:          l,
	})
	rt.Start()
	return rt, nil
}

// runServe はエッジサーバーを起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	// 1. メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 2. APIクライアント（トークンはリクエストごとのCookieから中継する）
	client, err := newClient(cfg, nil, collector, l)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	// 3. レート制限
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.ChatRatePerMin), collector, l)
	defer rl.Stop()

	// 4. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Upstream:       client,
		Sanitizer:      security.NewContentSanitizer(),
		RateLimiter:    rl,
		Metrics:        collector,
		Logger:         l,
		MetricsHandler: metrics.Handler(reg),
		Guard:          guardConfig(cfg),
		Auth: handler.AuthHandlerConfig{
			CookieMaxAge: cfg.CookieMaxAge,
			CookieSecure: cfg.CookieSecure,
			AdminPath:    cfg.AdminPath,
			LoginPath:    cfg.LoginPath,
		},
		APIBaseURL:      cfg.APIBaseURL,
		DefaultLanguage: model.LanguageCode(cfg.DefaultLanguage),
		CORSOrigins:     []string{cfg.BaseURL},
	})

	// 5. HTTPサーバーの起動
	// 記事作成はAIの生成と翻訳を待つため、書き込みタイムアウトを長めにとる
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("edge server starting",
			slog.String("addr", server.Addr),
			slog.String("api_base_url", cfg.APIBaseURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("shutting down edge server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	l.Info("edge server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// healthcheckPort はヘルスチェック先のポートを返す。
// healthcheckは軽量サブコマンドのため、設定の読み込みをスキップする。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	return "3000"
}
