package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fundwatch/internal/fund"
)

type stubGetter struct {
	payload []byte
	err     error
	calls   int
}

func (s *stubGetter) Get(ctx context.Context, url string, timeout time.Duration, maxRetries int) ([]byte, error) {
	s.calls++
	return s.payload, s.err
}

func directoryPayload(n int) []byte {
	var b strings.Builder
	b.WriteString("var r = [")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `["%06d","JP%d","基金%d","混合型"]`, i, i, i)
	}
	b.WriteString("];")
	return []byte(b.String())
}

func snapshotFile(t *testing.T, n int) string {
	t.Helper()
	records := make([]fund.Record, n)
	for i := range records {
		records[i] = fund.Record{Code: fmt.Sprintf("%06d", i), Name: fmt.Sprintf("基金%d", i)}
	}
	data, err := json.Marshal(fund.Snapshot{TS: time.Now().UTC(), Records: records})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "funds_cache.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newManager(t *testing.T, getter Getter, snapshotPath string) *Manager {
	t.Helper()
	if snapshotPath == "" {
		snapshotPath = filepath.Join(t.TempDir(), "funds_cache.json")
	}
	return New(Options{
		URL:          "http://upstream/fundcode_search.js",
		SnapshotPath: snapshotPath,
	}, getter, zerolog.Nop())
}

func TestLoadOnlineRefreshesSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "funds_cache.json")
	m := newManager(t, &stubGetter{payload: directoryPayload(1500)}, path)

	records, provenance, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("在线加载应成功: %v", err)
	}
	if provenance != "online" {
		t.Fatalf("来源应为 online, 实际 %q", provenance)
	}
	if len(records) != 1500 {
		t.Fatalf("期望 1500 条, 实际 %d", len(records))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("成功后应写入快照: %v", err)
	}
	var snapshot fund.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("快照应为合法 JSON: %v", err)
	}
	if snapshot.TS.IsZero() || len(snapshot.Records) != 1500 {
		t.Fatalf("快照内容不完整: ts=%v records=%d", snapshot.TS, len(snapshot.Records))
	}

	// no stray temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("缓存目录应只有快照文件: %v", entries)
	}
}

func TestLoadFallsBackToSnapshot(t *testing.T) {
	path := snapshotFile(t, 1200)
	m := newManager(t, &stubGetter{err: errors.New("connection refused")}, path)

	records, provenance, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("快照兜底应成功: %v", err)
	}
	if len(records) != 1200 {
		t.Fatalf("期望 1200 条, 实际 %d", len(records))
	}
	if !strings.HasPrefix(provenance, "cache (reason:") || !strings.Contains(provenance, "connection refused") {
		t.Fatalf("来源标签应包含在线失败原因, 实际 %q", provenance)
	}
}

func TestLoadFatalWithoutSnapshot(t *testing.T) {
	m := newManager(t, &stubGetter{err: errors.New("dial timeout")}, "")

	_, _, err := m.Load(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("无快照时应返回 ErrUnavailable, 实际 %v", err)
	}
	if !strings.Contains(err.Error(), "dial timeout") {
		t.Fatalf("错误应嵌入在线失败原因, 实际 %v", err)
	}
}

func TestLoadFatalWithTooSmallSnapshot(t *testing.T) {
	path := snapshotFile(t, 500)
	m := newManager(t, &stubGetter{err: errors.New("blocked")}, path)

	if _, _, err := m.Load(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("过小的快照不可信, 应返回 ErrUnavailable, 实际 %v", err)
	}
}

func TestLoadFatalWithCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds_cache.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := newManager(t, &stubGetter{err: errors.New("blocked")}, path)

	if _, _, err := m.Load(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("损坏的快照应视为不可用, 实际 %v", err)
	}
}

func TestLoadOverwritesStaleSnapshot(t *testing.T) {
	path := snapshotFile(t, 1200)
	m := newManager(t, &stubGetter{payload: directoryPayload(1500)}, path)

	if _, _, err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(path)
	var snapshot fund.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatal(err)
	}
	if len(snapshot.Records) != 1500 {
		t.Fatalf("快照应反映最近一次在线成功, 实际 %d 条", len(snapshot.Records))
	}
}

func TestProbe(t *testing.T) {
	ok := newManager(t, &stubGetter{payload: directoryPayload(1000)}, "")
	if err := ok.Probe(context.Background()); err != nil {
		t.Fatalf("probe 应成功: %v", err)
	}

	blocked := newManager(t, &stubGetter{payload: []byte("<html>blocked</html>")}, "")
	if err := blocked.Probe(context.Background()); err == nil {
		t.Fatal("被拦截的响应 probe 应失败")
	}
}
