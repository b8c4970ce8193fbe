// Package handler はメトリクス/ヘルスチェック用のHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/hwnotify/internal/worker/poll"
)

// StatusReporter はポーリングループの状態を返すインターフェース。
// *poll.Poller がこれを満たす。
type StatusReporter interface {
	Status() poll.Status
}

// healthResponse は/healthのレスポンスボディ。
type healthResponse struct {
	Status string      `json:"status"`
	Poller poll.Status `json:"poller"`
}

// HealthHandler はポーリングループの状態をもとにヘルスチェックに応答する。
type HealthHandler struct {
	reporter StatusReporter
}

// NewHealthHandler はHealthHandlerの新しいインスタンスを生成する。
func NewHealthHandler(reporter StatusReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// Health は GET /health を処理する。
// 正常な場合は200、そうでない場合は503を返す。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.reporter.Status()

	resp := healthResponse{Status: "ok", Poller: st}
	code := http.StatusOK
	if !st.IsHealthy() {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
