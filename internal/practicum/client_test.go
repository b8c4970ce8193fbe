package practicum

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/hwnotify/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestClient(t *testing.T, server *httptest.Server, buf *bytes.Buffer) *Client {
	t.Helper()
	return NewClient(server.Client(), newTestLogger(buf), ClientConfig{
		Endpoint: server.URL + "/api/user_api/homework_statuses/",
		Token:    "secret-token",
	})
}

func TestNewClient_ReturnsNonNil(t *testing.T) {
	c := NewClient(nil, nil, ClientConfig{Endpoint: "https://example.com"})
	if c == nil {
		t.Fatal("NewClient は nil を返してはならない")
	}
	if c.maxBodySize != defaultMaxBodySize {
		t.Errorf("maxBodySize = %d, want %d", c.maxBodySize, defaultMaxBodySize)
	}
}

func TestClient_GetAPIAnswer_SendsAuthAndCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("HTTPメソッド = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/user_api/homework_statuses/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "OAuth secret-token" {
			t.Errorf("Authorization = %q, want %q", got, "OAuth secret-token")
		}
		if got := r.URL.Query().Get("from_date"); got != "1700000000" {
			t.Errorf("from_date = %q, want %q", got, "1700000000")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"homeworks": [], "current_date": 1700000600}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	body, err := c.GetAPIAnswer(context.Background(), 1700000000)
	if err != nil {
		t.Fatalf("GetAPIAnswer がエラーを返した: %v", err)
	}
	if !strings.Contains(string(body), `"current_date": 1700000600`) {
		t.Errorf("ボディはそのまま返されるべき, got %s", body)
	}
}

func TestClient_GetAPIAnswer_ZeroCursorUsesNow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("from_date"); got != "1234567890" {
			t.Errorf("from_date = %q, want 1234567890", got)
		}
		w.Write([]byte(`{"homeworks": [], "current_date": 1}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)
	c.now = func() time.Time { return time.Unix(1234567890, 0) }

	if _, err := c.GetAPIAnswer(context.Background(), 0); err != nil {
		t.Fatalf("GetAPIAnswer がエラーを返した: %v", err)
	}
}

func TestClient_GetAPIAnswer_PreservesEndpointQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lang"); got != "ru" {
			t.Errorf("既存クエリが維持されるべき: lang = %q", got)
		}
		w.Write([]byte(`{"homeworks": [], "current_date": 1}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), ClientConfig{
		Endpoint: server.URL + "/?lang=ru",
		Token:    "t",
	})
	if _, err := c.GetAPIAnswer(context.Background(), 10); err != nil {
		t.Fatalf("GetAPIAnswer がエラーを返した: %v", err)
	}
}

func TestClient_GetAPIAnswer_Non200ReturnsHTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<html><body>internal failure</body></html>"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	_, err := c.GetAPIAnswer(context.Background(), 1)
	if !errors.Is(err, model.ErrHTTPStatus) {
		t.Fatalf("err = %v, want HTTPStatusError", err)
	}
	var statusErr *model.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 500 {
		t.Errorf("StatusCode が 500 であるべき, got %v", err)
	}
	if strings.Contains(err.Error(), "internal failure") {
		t.Errorf("エラーメッセージにボディを含めないべき, got %q", err.Error())
	}
	if statusErr.Body != "<html><body>internal failure</body></html>" {
		t.Errorf("Body = %q", statusErr.Body)
	}
	if !strings.Contains(buf.String(), "internal failure") {
		t.Errorf("ボディの先頭はログに記録されるべき, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"http_status":500`) {
		t.Errorf("ステータスがログに記録されるべき, got %s", buf.String())
	}
}

func TestClient_GetAPIAnswer_TransportFailureReturnsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 接続拒否を発生させる

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	_, err := c.GetAPIAnswer(context.Background(), 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
}

func TestClient_GetAPIAnswer_ContextCancelledReturnsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetAPIAnswer(ctx, 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("原因として context.Canceled を辿れるべき: %v", err)
	}
}

func TestClient_GetAPIAnswer_InvalidJSONReturnsTypeKindError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := newTestClient(t, server, &buf)

	_, err := c.GetAPIAnswer(context.Background(), 1)
	if !errors.Is(err, model.ErrTypeKind) {
		t.Fatalf("err = %v, want TypeKindError", err)
	}
}

func TestClient_GetAPIAnswer_BodyTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"homeworks": [], "current_date": 1000000}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	c := NewClient(server.Client(), newTestLogger(&buf), ClientConfig{
		Endpoint:    server.URL,
		Token:       "t",
		MaxBodySize: 8,
	})

	_, err := c.GetAPIAnswer(context.Background(), 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
}

func TestClient_GetAPIAnswer_InvalidEndpoint(t *testing.T) {
	c := NewClient(http.DefaultClient, nil, ClientConfig{Endpoint: "://bad"})

	_, err := c.GetAPIAnswer(context.Background(), 1)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("err = %v, want NetworkError", err)
	}
}
