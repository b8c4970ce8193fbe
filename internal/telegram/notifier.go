// Package telegram はTelegram Bot API経由のチャット通知を提供する。
package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/hitoshi/hwnotify/internal/model"
)

// errEmptyMessage は空の本文を送ろうとした場合の原因エラー。
var errEmptyMessage = errors.New("message text is empty")

// Sender はBot APIへのメッセージ送信のインターフェース。
// *tgbotapi.BotAPI がこれを満たす。
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// botBuffer はtgbotapi.NewBotAPIWithClientと同じ更新チャネルのバッファサイズ。
const botBuffer = 100

// NewBot はBot APIクライアントを生成する。
// 生成時にgetMeを呼び出してトークンを検証する。
// 検証に失敗してもERRORログを出力して未認証のクライアントを返すため、
// 起動時のTelegram障害でプロセスは停止しない。送信の失敗は各サイクルで報告される。
// endpointが空の場合は公式エンドポイントを使用する。
func NewBot(token, endpoint string, httpClient *http.Client, logger *slog.Logger) *tgbotapi.BotAPI {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, httpClient)
	if err == nil {
		logger.Info("telegram bot authorized", slog.String("username", bot.Self.UserName))
		return bot
	}

	logger.Error("Telegram Botの認証に失敗しました。ポーリングは継続します",
		slog.String("error", err.Error()),
	)
	bot = &tgbotapi.BotAPI{
		Token:  token,
		Client: httpClient,
		Buffer: botBuffer,
	}
	bot.SetAPIEndpoint(endpoint)
	return bot
}

// Notifier は固定の1チャットへプレーンテキストを送信する。
// 送信間隔はレートリミッターで制御する。
type Notifier struct {
	sender  Sender
	chatID  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewNotifier はNotifierの新しいインスタンスを生成する。
// chatIDは数値IDまたは"@channel"形式を受け付ける。
// sendIntervalが0以下の場合は送信間隔を制限しない。
func NewNotifier(sender Sender, chatID string, sendInterval time.Duration, logger *slog.Logger) *Notifier {
	limit := rate.Inf
	if sendInterval > 0 {
		limit = rate.Every(sendInterval)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:  sender,
		chatID:  chatID,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

// SendMessage はtextを設定済みチャットへ送信する。
// 送信に失敗した場合はDeliveryErrorを返す。
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return model.NewDeliveryError(errEmptyMessage)
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return model.NewDeliveryError(err)
	}

	if _, err := n.sender.Send(n.buildMessage(text)); err != nil {
		n.logger.Error("Telegramへのメッセージ送信に失敗しました",
			slog.String("chat_id", n.chatID),
			slog.String("error", err.Error()),
		)
		return model.NewDeliveryError(err)
	}

	n.logger.Debug("Telegramへメッセージを送信しました",
		slog.String("chat_id", n.chatID),
		slog.Int("text_length", len([]rune(text))),
	)
	return nil
}

// buildMessage はchatIDの形式に応じてメッセージ設定を組み立てる。
func (n *Notifier) buildMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	username := n.chatID
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return tgbotapi.NewMessageToChannel(username, text)
}
