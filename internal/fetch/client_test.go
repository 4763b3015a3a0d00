package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestGetInvalidArguments(t *testing.T) {
	c := New(Options{}, noopLogger())
	if _, err := c.Get(context.Background(), "http://example", 0, 3); err == nil {
		t.Fatal("timeout=0 应返回错误")
	}
	if _, err := c.Get(context.Background(), "http://example", time.Second, 0); err == nil {
		t.Fatal("maxRetries=0 应返回错误")
	}
}

func TestGetSuccessFirstAttempt(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(Options{BackoffStep: time.Millisecond}, noopLogger())
	body, err := c.Get(context.Background(), srv.URL, time.Second, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
	if !strings.Contains(gotUA, "Mozilla/5.0") {
		t.Fatalf("应携带浏览器 UA, 实际 %q", gotUA)
	}
}

func TestGetExhaustsRetriesWithLinearBackoff(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Options{BackoffStep: 100 * time.Millisecond}, noopLogger())
	var slept []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := c.Get(context.Background(), srv.URL, time.Second, 3)
	if err == nil {
		t.Fatal("3 次均失败应返回错误")
	}
	if attempts != 3 {
		t.Fatalf("期望恰好 3 次请求, 实际 %d", attempts)
	}
	if len(slept) != 2 || slept[0] != 100*time.Millisecond || slept[1] != 200*time.Millisecond {
		t.Fatalf("退避序列不符合线性递增: %v", slept)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("应保留最后一次错误信息, 实际 %v", err)
	}
}

func TestGetRecoversAfterFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok at last"))
	}))
	defer srv.Close()

	c := New(Options{BackoffStep: time.Millisecond}, noopLogger())
	body, err := c.Get(context.Background(), srv.URL, time.Second, 4)
	if err != nil {
		t.Fatalf("第三次应成功: %v", err)
	}
	if string(body) != "ok at last" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestGetCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Options{BackoffStep: time.Hour}, noopLogger())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if _, err := c.Get(ctx, srv.URL, time.Second, 2); err != context.Canceled {
		t.Fatalf("取消应中断退避等待, 实际 %v", err)
	}
}
