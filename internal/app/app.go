package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/hwnotify/internal/config"
	"github.com/hitoshi/hwnotify/internal/handler"
	"github.com/hitoshi/hwnotify/internal/logger"
	"github.com/hitoshi/hwnotify/internal/metrics"
	"github.com/hitoshi/hwnotify/internal/practicum"
	"github.com/hitoshi/hwnotify/internal/telegram"
	"github.com/hitoshi/hwnotify/internal/worker/poll"
)

const (
	defaultEnvFile  = ".env"
	shutdownTimeout = 10 * time.Second
)

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、標準出力とローテーション付きファイルへの
// JSON構造化ログをセットアップする。
// 必須環境変数が欠けている場合は、欠けている変数ごとにCRITICALログを出力し、
// *config.MissingEnvErrorを含むエラーを返す。
// 返されたio.Closerはログファイルを閉じるため、終了時に呼び出すこと。
func Init(w io.Writer) (*config.Config, io.Closer, error) {
	if w == nil {
		w = os.Stdout
	}

	// 1. .envの読み込み（ログ設定も.envから読めるよう最初に行う）
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = defaultEnvFile
	}
	dotenvErr := config.LoadDotEnv(envFile)

	// 2. ログの初期化（必須項目の検証失敗もファイルへ記録する）
	logCfg := config.LoadLogConfig()
	out, closer, err := logger.Output(w, logger.FileConfig{
		Path:       logCfg.File,
		MaxSizeMB:  logCfg.MaxSizeMB,
		MaxBackups: logCfg.MaxBackups,
	})
	if err != nil {
		logger.SetupDefault(w, slog.LevelDebug)
		return nil, nil, err
	}
	log := logger.SetupDefault(out, logger.ParseLevel(logCfg.Level))

	if dotenvErr != nil {
		log.Warn(".envファイルの読み込みに失敗しました",
			slog.String("path", envFile),
			slog.String("error", dotenvErr.Error()),
		)
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		var missingErr *config.MissingEnvError
		if errors.As(err, &missingErr) {
			for _, name := range missingErr.Missing {
				logger.Critical(log, fmt.Sprintf("Отсутствует переменная окружения %s.", name))
			}
		}
		closer.Close()
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, closer, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
// SIGINTまたはSIGTERMシグナルを受信するとポーリングを停止して戻る。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		return runHealthcheck(os.Getenv("METRICS_ADDR"))
	}

	cfg, closer, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer closer.Close()

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("endpoint", cfg.Endpoint),
		slog.Duration("retry_time", cfg.RetryTime),
		slog.String("cursor_mode", string(cfg.CursorMode)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, cmd)
}

// ExitCode はRunの戻り値をプロセスの終了コードに変換する。
// 必須環境変数の欠落は設定不備として0で終了する。
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var missingErr *config.MissingEnvError
	if errors.As(err, &missingErr) {
		return 0
	}
	return 1
}

// LogExit はRunの戻り値を記録し、プロセスの終了コードを返す。
// 設定不備はInitでCRITICALとして記録済みのため、重ねて出力しない。
func LogExit(err error) int {
	code := ExitCode(err)
	if code != 0 {
		slog.Error("application exited", slog.String("error", err.Error()))
	}
	return code
}

// run は依存関係をワイヤリングし、cmdに応じてポーリングを実行する。
func run(ctx context.Context, cfg *config.Config, cmd Command) error {
	log := slog.Default()

	// 1. メトリクスの初期化
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 2. レビューAPIクライアントの初期化
	client := practicum.NewClient(
		&http.Client{Timeout: cfg.FetchTimeout},
		log,
		practicum.ClientConfig{
			Endpoint:    cfg.Endpoint,
			Token:       cfg.PracticumToken,
			MaxBodySize: cfg.FetchMaxSize,
		},
	)

	// 3. Telegram Botの初期化（getMeの失敗は起動を止めない）
	tgbotapi.SetLogger(slog.NewLogLogger(log.Handler(), slog.LevelDebug))
	bot := telegram.NewBot(
		cfg.TelegramToken,
		cfg.TelegramAPIEndpoint,
		&http.Client{Timeout: cfg.FetchTimeout},
		log,
	)

	notifier := telegram.NewNotifier(bot, cfg.TelegramChatID, cfg.TelegramSendInterval, log)

	// 4. ポーラーの初期化
	poller := poll.New(client, notifier, log, collector, poll.Config{
		Interval:   cfg.RetryTime,
		CursorMode: cfg.CursorMode,
	})

	if cmd == CommandOnce {
		return poller.RunOnce(ctx)
	}

	// 5. メトリクス/ヘルスチェックサーバーの起動（METRICS_ADDR指定時のみ）
	var server *http.Server
	if cfg.MetricsAddr != "" {
		server = &http.Server{
			Addr: cfg.MetricsAddr,
			Handler: handler.NewRouter(&handler.RouterDeps{
				Logger:   log,
				Reporter: poller,
				Gatherer: reg,
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info("metrics server starting", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server listen error", slog.String("error", err.Error()))
			}
		}()
	}

	// 6. ポーリングをメインgoroutineで実行（ブロッキング）
	poller.Start(ctx)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown failed: %w", err)
		}
	}

	log.Info("application stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(addr string) error {
	url, err := healthURL(addr)
	if err != nil {
		return err
	}
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

// healthURL はリッスンアドレスから/healthのURLを組み立てる。
// ホストが省略またはワイルドカードの場合はlocalhostを使用する。
func healthURL(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("health check requires METRICS_ADDR")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid METRICS_ADDR %q: %w", addr, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return fmt.Sprintf("http://%s/health", net.JoinHostPort(host, port)), nil
}
