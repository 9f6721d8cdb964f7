package capture

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/disaster-mapping/internal/logging"
)

func writeFrameFile(t *testing.T, dir, name string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("frame:"+name), 0o644); err != nil {
		t.Fatalf("failed to write frame file: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("failed to set mod time: %v", err)
	}
}

func TestDirectorySourceNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFrameFile(t, dir, "old.jpg", base)
	writeFrameFile(t, dir, "new.png", base.Add(10*time.Minute))
	writeFrameFile(t, dir, "notes.txt", base.Add(20*time.Minute))

	source := NewDirectorySource(dir)
	ctx := context.Background()

	first, err := source.Capture(ctx)
	if err != nil {
		t.Fatalf("failed to capture: %v", err)
	}
	if first.Name != "new.png" {
		t.Fatalf("expected newest frame first, got %s", first.Name)
	}
	if string(first.Data) != "frame:new.png" {
		t.Fatalf("unexpected frame data: %s", first.Data)
	}

	second, err := source.Capture(ctx)
	if err != nil {
		t.Fatalf("failed to capture: %v", err)
	}
	if second.Name != "old.jpg" {
		t.Fatalf("expected old.jpg second, got %s", second.Name)
	}

	if _, err := source.Capture(ctx); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame once drained, got %v", err)
	}
}

func TestDirectorySourceSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755); err != nil {
		t.Fatalf("failed to create subdirectory: %v", err)
	}

	source := NewDirectorySource(dir)
	if _, err := source.Capture(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}

func testAPIConfig(endpoint string) APIConfig {
	return APIConfig{
		Endpoint:       endpoint,
		Timeout:        5 * time.Second,
		RetryAttempts:  3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestUploaderRecoversFromServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-Request-ID", "req-77")
		w.Header().Set("X-Total-Objects", "4")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	uploader := NewUploader(testAPIConfig(server.URL), zap.NewNop())
	frame := &Frame{Name: "frame.jpg", Data: []byte("payload")}

	result, err := uploader.Upload(context.Background(), frame)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if result.RequestID != "req-77" || result.TotalObjects != 4 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	stats := uploader.Stats()
	if stats.Uploaded != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.BytesUploaded != int64(len(frame.Data)) {
		t.Fatalf("unexpected byte count: %d", stats.BytesUploaded)
	}
}

func TestUploaderExhaustsRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	uploader := NewUploader(testAPIConfig(server.URL), zap.NewNop())

	_, err := uploader.Upload(context.Background(), &Frame{Name: "frame.jpg", Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	var opErr *logging.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T", err)
	}
	if opErr.Operation != "uploader.upload" {
		t.Fatalf("unexpected operation: %s", opErr.Operation)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	stats := uploader.Stats()
	if stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestUploaderSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testAPIConfig(server.URL)
	cfg.Token = "device-token"
	uploader := NewUploader(cfg, zap.NewNop())

	if _, err := uploader.Upload(context.Background(), &Frame{Name: "frame.jpg", Data: []byte("x")}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gotAuth != "Bearer device-token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
}

type stubSource struct {
	frames []*Frame
	err    error
}

func (s *stubSource) Capture(ctx context.Context) (*Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}
	frame := s.frames[0]
	s.frames = s.frames[1:]
	return frame, nil
}

type stubUploader struct {
	failures int
	uploaded []string
	calls    int
}

func (s *stubUploader) Upload(ctx context.Context, frame *Frame) (*UploadResult, error) {
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("upload failed")
	}
	s.uploaded = append(s.uploaded, frame.Name)
	return &UploadResult{RequestID: "req"}, nil
}

func newTestAgent(source FrameSource, uploader FrameUploader, maxSpool int) *Agent {
	cfg := CameraConfig{CaptureInterval: time.Millisecond, MaxSpool: maxSpool}
	return NewAgent(source, uploader, cfg, zap.NewNop())
}

func TestAgentUploadsCapturedFrames(t *testing.T) {
	source := &stubSource{frames: []*Frame{{Name: "a.jpg"}, {Name: "b.jpg"}}}
	uploader := &stubUploader{}
	agent := newTestAgent(source, uploader, 10)

	ctx := context.Background()
	agent.tick(ctx)
	agent.tick(ctx)

	if len(uploader.uploaded) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploader.uploaded))
	}
	if uploader.uploaded[0] != "a.jpg" || uploader.uploaded[1] != "b.jpg" {
		t.Fatalf("unexpected upload order: %v", uploader.uploaded)
	}
	if agent.SpoolDepth() != 0 {
		t.Fatalf("spool should be empty, got %d", agent.SpoolDepth())
	}
}

func TestAgentToleratesEmptySource(t *testing.T) {
	source := &stubSource{}
	uploader := &stubUploader{}
	agent := newTestAgent(source, uploader, 10)

	agent.tick(context.Background())

	if uploader.calls != 0 {
		t.Fatalf("nothing should be uploaded, got %d calls", uploader.calls)
	}
	if agent.SpoolDepth() != 0 {
		t.Fatalf("spool should be empty, got %d", agent.SpoolDepth())
	}
}

func TestAgentRequeuesFailedFrames(t *testing.T) {
	source := &stubSource{frames: []*Frame{{Name: "a.jpg"}}}
	uploader := &stubUploader{failures: 1}
	agent := newTestAgent(source, uploader, 10)

	ctx := context.Background()
	agent.tick(ctx)
	if agent.SpoolDepth() != 1 {
		t.Fatalf("failed frame should stay spooled, got depth %d", agent.SpoolDepth())
	}

	agent.tick(ctx)
	if agent.SpoolDepth() != 0 {
		t.Fatalf("frame should upload on the next tick, got depth %d", agent.SpoolDepth())
	}
	if len(uploader.uploaded) != 1 || uploader.uploaded[0] != "a.jpg" {
		t.Fatalf("unexpected uploads: %v", uploader.uploaded)
	}
}

func TestAgentParksFrameAfterRepeatedFailures(t *testing.T) {
	source := &stubSource{frames: []*Frame{{Name: "bad.jpg"}}}
	uploader := &stubUploader{failures: 10}
	agent := newTestAgent(source, uploader, 10)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		agent.tick(ctx)
	}

	if agent.ParkedFrames() != 1 {
		t.Fatalf("expected 1 parked frame, got %d", agent.ParkedFrames())
	}
	if agent.SpoolDepth() != 0 {
		t.Fatalf("parked frame must leave the spool, got depth %d", agent.SpoolDepth())
	}
	if uploader.calls != agent.maxRequeues {
		t.Fatalf("expected %d attempts before parking, got %d", agent.maxRequeues, uploader.calls)
	}
}

func TestAgentSpoolDropsOldestWhenFull(t *testing.T) {
	source := &stubSource{}
	uploader := &stubUploader{}
	agent := newTestAgent(source, uploader, 2)

	agent.enqueue(&Frame{Name: "first.jpg"})
	agent.enqueue(&Frame{Name: "second.jpg"})
	agent.enqueue(&Frame{Name: "third.jpg"})

	if agent.SpoolDepth() != 2 {
		t.Fatalf("spool must stay bounded, got %d", agent.SpoolDepth())
	}
	if agent.spool[0].Name != "second.jpg" || agent.spool[1].Name != "third.jpg" {
		t.Fatalf("oldest frame should be dropped: %s, %s", agent.spool[0].Name, agent.spool[1].Name)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Camera.CaptureInterval != 10*time.Second {
		t.Fatalf("unexpected capture interval: %v", cfg.Camera.CaptureInterval)
	}
	if cfg.Camera.MaxSpool != 50 {
		t.Fatalf("unexpected max spool: %d", cfg.Camera.MaxSpool)
	}
	if cfg.API.Endpoint != "http://localhost:8080" {
		t.Fatalf("unexpected endpoint: %s", cfg.API.Endpoint)
	}
	if cfg.API.RetryAttempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.API.RetryAttempts)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	yaml := `
camera:
  source_dir: /data/frames
  capture_interval: 2s
  max_spool: 5
api:
  endpoint: http://api.example.com
  token: secret
  retry_attempts: 7
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Camera.SourceDir != "/data/frames" {
		t.Fatalf("unexpected source dir: %s", cfg.Camera.SourceDir)
	}
	if cfg.Camera.CaptureInterval != 2*time.Second {
		t.Fatalf("unexpected capture interval: %v", cfg.Camera.CaptureInterval)
	}
	if cfg.Camera.MaxSpool != 5 {
		t.Fatalf("unexpected max spool: %d", cfg.Camera.MaxSpool)
	}
	if cfg.API.Endpoint != "http://api.example.com" {
		t.Fatalf("unexpected endpoint: %s", cfg.API.Endpoint)
	}
	if cfg.API.Token != "secret" {
		t.Fatalf("unexpected token: %s", cfg.API.Token)
	}
	if cfg.API.RetryAttempts != 7 {
		t.Fatalf("unexpected retry attempts: %d", cfg.API.RetryAttempts)
	}
	// Untouched keys keep their defaults.
	if cfg.API.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.API.Timeout)
	}
}
