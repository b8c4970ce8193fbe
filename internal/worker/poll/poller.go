// Package poll はレビューAPIの定期ポーリングと通知を行うワーカーを提供する。
// 取得、検証、通知文の生成、送信を1サイクルとして固定間隔で繰り返す。
package poll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hwnotify/internal/config"
	"github.com/hitoshi/hwnotify/internal/metrics"
	"github.com/hitoshi/hwnotify/internal/model"
	"github.com/hitoshi/hwnotify/internal/practicum"
	"github.com/hitoshi/hwnotify/internal/status"
)

const (
	defaultInterval = 600 * time.Second

	// unhealthyThreshold 回連続で失敗すると異常とみなす。
	unhealthyThreshold = 3

	reportFormat = "Сбой в работе программы: %s"
)

// StatusFetcher はレビューAPIからステータスを取得するインターフェース。
type StatusFetcher interface {
	GetAPIAnswer(ctx context.Context, cursor int64) (json.RawMessage, error)
}

// MessageSender はチャットへメッセージを送信するインターフェース。
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// Config はPollerの動作設定。
type Config struct {
	// Interval はサイクル間の待機時間。0以下の場合は600秒。
	Interval time.Duration
	// CursorMode はポーリング成功後のカーソルの扱い。
	CursorMode config.CursorMode
	// StartCursor はカーソルの初期値。0以下の場合は起動時刻。
	StartCursor int64
}

// Status はポーリングループの直近の状態。
type Status struct {
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	LastAttempt         time.Time `json:"last_attempt"`
	LastSuccess         time.Time `json:"last_success"`
	Cursor              int64     `json:"cursor"`
	MessagesSent        int       `json:"messages_sent"`
}

// IsHealthy は1回以上成功しており、連続失敗が閾値未満であるかを返す。
func (s Status) IsHealthy() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < unhealthyThreshold
}

// Poller はレビューAPIを固定間隔でポーリングし、変化をチャットへ通知する。
// サイクル内の処理は逐次実行され、失敗はチャットへ報告される。
type Poller struct {
	fetcher    StatusFetcher
	sender     MessageSender
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	interval   time.Duration
	cursorMode config.CursorMode
	now        func() time.Time
	newCycleID func() string

	mu     sync.RWMutex
	status Status
}

// New はPollerの新しいインスタンスを生成する。
// recorderがnilの場合はメトリクスを記録しない。
func New(
	fetcher StatusFetcher,
	sender MessageSender,
	logger *slog.Logger,
	recorder metrics.MetricsCollector,
	cfg Config,
) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NopCollector{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	cursorMode := cfg.CursorMode
	if cursorMode == "" {
		cursorMode = config.CursorFixed
	}

	p := &Poller{
		fetcher:    fetcher,
		sender:     sender,
		logger:     logger,
		metrics:    recorder,
		interval:   interval,
		cursorMode: cursorMode,
		now:        time.Now,
		newCycleID: uuid.NewString,
	}

	p.status.Cursor = cfg.StartCursor
	if p.status.Cursor <= 0 {
		p.status.Cursor = p.now().Unix()
	}
	return p
}

// Start はコンテキストがキャンセルされるまでポーリングを繰り返す。
// 起動直後に1回実行し、以降は各サイクルの完了後にinterval待機する。
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("ポーリングを開始しました",
		slog.Duration("interval", p.interval),
		slog.String("cursor_mode", string(p.cursorMode)),
		slog.Int64("from_date", p.Cursor()),
	)

	for {
		if ctx.Err() != nil {
			p.logger.Info("ポーリングを停止しました")
			return
		}

		// エラーはRunOnce内でログ出力とチャットへの報告を済ませている
		_ = p.RunOnce(ctx)

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.logger.Info("ポーリングを停止しました")
			return
		case <-timer.C:
		}
	}
}

// RunOnce は1サイクル（取得、検証、通知）を実行する。
// 失敗した場合はエラー内容をチャットへ報告した上で、そのエラーを返す。
// 報告の送信自体に失敗してもログに記録するのみで、元のエラーを返す。
func (p *Poller) RunOnce(ctx context.Context) error {
	logger := p.logger.With(slog.String("cycle_id", p.newCycleID()))
	started := p.now()
	p.recordAttempt(started)

	cursor := p.Cursor()
	logger.Debug("ポーリングサイクルを開始します", slog.Int64("from_date", cursor))

	notified, currentDate, err := p.poll(ctx, logger, cursor)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("停止処理中のためエラー報告を省略します",
				slog.String("error", err.Error()),
			)
			return ctx.Err()
		}
		p.recordFailure(err)
		p.metrics.RecordPoll(metrics.ResultFailed)
		p.metrics.RecordPollError(model.ErrorCode(err))
		p.report(ctx, logger, err)
		return err
	}

	if p.cursorMode == config.CursorAdvance {
		p.setCursor(currentDate)
	}
	p.recordSuccess(started)

	if notified {
		p.metrics.RecordPoll(metrics.ResultNotified)
	} else {
		p.metrics.RecordPoll(metrics.ResultNoChange)
	}

	logger.Debug("ポーリングサイクルが完了しました",
		slog.Bool("notified", notified),
		slog.Int64("current_date", currentDate),
		slog.Float64("duration_ms", float64(p.now().Sub(started).Milliseconds())),
	)
	return nil
}

// poll は取得から送信までを実行し、通知したかどうかとAPIのcurrent_dateを返す。
func (p *Poller) poll(ctx context.Context, logger *slog.Logger, cursor int64) (bool, int64, error) {
	fetchStart := time.Now()
	raw, err := p.fetcher.GetAPIAnswer(ctx, cursor)
	p.metrics.RecordFetchLatency(time.Since(fetchStart))
	p.recordHTTPStatus(err)
	if err != nil {
		return false, 0, err
	}

	resp, err := practicum.CheckResponse(raw)
	if err != nil {
		return false, 0, err
	}

	hw := resp.First()
	message, err := status.Parse(hw)
	if err != nil {
		return false, 0, err
	}
	if message == "" {
		logger.Debug("新しいステータスはありません")
		return false, resp.CurrentDate, nil
	}

	if err := p.sender.SendMessage(ctx, message); err != nil {
		p.metrics.RecordDeliveryFailure()
		return false, 0, err
	}
	p.metrics.RecordNotification(metrics.KindStatus)
	p.incrementSent()

	logger.Info("ステータスの変更を通知しました",
		slog.String("homework_name", hw.Name),
		slog.String("status", hw.Status),
	)
	return true, resp.CurrentDate, nil
}

// report は失敗内容をログに記録し、チャットへ送信する。
func (p *Poller) report(ctx context.Context, logger *slog.Logger, err error) {
	message := fmt.Sprintf(reportFormat, err)
	logger.Error(message, slog.String("error_code", model.ErrorCode(err)))

	if sendErr := p.sender.SendMessage(ctx, message); sendErr != nil {
		p.metrics.RecordDeliveryFailure()
		logger.Error("エラー報告の送信に失敗しました",
			slog.String("error", sendErr.Error()),
		)
		return
	}
	p.metrics.RecordNotification(metrics.KindErrorReport)
	p.incrementSent()
}

func (p *Poller) recordHTTPStatus(err error) {
	if err == nil {
		p.metrics.RecordHTTPStatus(http.StatusOK)
		return
	}
	var statusErr *model.HTTPStatusError
	if errors.As(err, &statusErr) {
		p.metrics.RecordHTTPStatus(statusErr.StatusCode)
	}
}

// Cursor は次回のポーリングで使用するfrom_dateを返す。
func (p *Poller) Cursor() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.Cursor
}

func (p *Poller) setCursor(cursor int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Cursor = cursor
}

func (p *Poller) recordAttempt(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.LastAttempt = at
}

func (p *Poller) recordSuccess(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = at
}

func (p *Poller) recordFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.ConsecutiveFailures++
	p.status.LastError = err.Error()
}

func (p *Poller) incrementSent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.MessagesSent++
}

// Status はポーリングループの状態のスナップショットを返す。
func (p *Poller) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// IsHealthy は現在の状態が正常かを返す。
func (p *Poller) IsHealthy() bool {
	return p.Status().IsHealthy()
}
