package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEndpoint はレビューAPIのデフォルトURL。
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// CursorMode はポーリング成功後のカーソル更新方針を表す。
type CursorMode string

const (
	// CursorFixed は起動時のカーソルを維持し続ける。
	CursorFixed CursorMode = "fixed"
	// CursorAdvance はレスポンスのcurrent_dateを次のカーソルとして採用する。
	CursorAdvance CursorMode = "advance"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Practicum
	PracticumToken string
	Endpoint       string
	RetryTime      time.Duration
	FetchTimeout   time.Duration
	FetchMaxSize   int64
	CursorMode     CursorMode

	// Telegram
	TelegramToken        string
	TelegramChatID       string
	TelegramAPIEndpoint  string
	TelegramSendInterval time.Duration

	// Metrics / health
	MetricsAddr string
}

// LogConfig はログ出力の設定。
// 必須項目の検証失敗もファイルへ記録するため、Configには含めずLoadより先に読み込む。
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	Level      string
}

// LoadLogConfig は環境変数からログ出力の設定を読み込む。
// LOG_FILEに"-"を指定するとファイル出力を無効にする。
func LoadLogConfig() LogConfig {
	return LogConfig{
		File:       getEnvString("LOG_FILE", "hw_logger.log"),
		MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
		MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		Level:      getEnvString("LOG_LEVEL", "debug"),
	}
}

// MissingEnvError は必須環境変数が未設定であることを表す。
type MissingEnvError struct {
	Missing []string
}

// Error はerrorインターフェースを実装する。
func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("required environment variables are not set: %v", e.Missing)
}

// LoadDotEnv はpathの.envファイルを環境変数に読み込む。
// ファイルが存在しない場合は何もしない。既存の環境変数は上書きしない。
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は*MissingEnvErrorを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.PracticumToken = os.Getenv("PRACTICUM_TOKEN")
	if cfg.PracticumToken == "" {
		missing = append(missing, "PRACTICUM_TOKEN")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		missing = append(missing, "TELEGRAM_TOKEN")
	}

	cfg.TelegramChatID = strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	if cfg.TelegramChatID == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}

	if len(missing) > 0 {
		return nil, &MissingEnvError{Missing: missing}
	}

	// Optional fields with defaults
	cfg.Endpoint = getEnvString("ENDPOINT", DefaultEndpoint)
	cfg.RetryTime = getEnvDuration("RETRY_TIME", 600*time.Second)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 1<<20)
	cfg.CursorMode = parseCursorMode(os.Getenv("CURSOR_MODE"))
	cfg.TelegramAPIEndpoint = getEnvString("TELEGRAM_API_ENDPOINT", "")
	cfg.TelegramSendInterval = getEnvDuration("TELEGRAM_SEND_INTERVAL", time.Second)

	cfg.MetricsAddr = getEnvString("METRICS_ADDR", "")

	return cfg, nil
}

// parseCursorMode は未知の値をCursorFixedとして扱う。
func parseCursorMode(v string) CursorMode {
	if strings.EqualFold(strings.TrimSpace(v), string(CursorAdvance)) {
		return CursorAdvance
	}
	return CursorFixed
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

// getEnvDuration は"600s"のような期間表記に加えて、秒数のみの整数も受け付ける。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return defaultVal
		}
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
