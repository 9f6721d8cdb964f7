package main

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server at %s did not come up", addr)
}

func TestServerGracefulShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()

	server := &http.Server{Handler: router}
	signalCh := make(chan os.Signal, 1)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serveHTTPServerWithOptions(server, 5*time.Second, zap.NewNop(), listener, signalCh)
	}()

	waitForServer(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	signalCh <- syscall.SIGTERM

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	if _, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		t.Fatal("listener should be closed after shutdown")
	}
}

func TestServerShutdownWaitsForInflightRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	router := gin.New()
	router.GET("/slow", func(c *gin.Context) {
		once.Do(func() { close(started) })
		<-release
		c.String(http.StatusOK, "done")
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := listener.Addr().String()

	server := &http.Server{Handler: router}
	signalCh := make(chan os.Signal, 1)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- serveHTTPServerWithOptions(server, 5*time.Second, zap.NewNop(), listener, signalCh)
	}()

	waitForServer(t, addr)

	type reqResult struct {
		body string
		err  error
	}
	resultCh := make(chan reqResult, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/slow", addr))
		if err != nil {
			resultCh <- reqResult{err: err}
			return
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		resultCh <- reqResult{body: string(body), err: err}
	}()

	<-started
	signalCh <- syscall.SIGTERM

	// Let shutdown begin, then release the in-flight request.
	time.Sleep(100 * time.Millisecond)
	close(release)

	result := <-resultCh
	if result.err != nil {
		t.Fatalf("in-flight request failed during shutdown: %v", result.err)
	}
	if result.body != "done" {
		t.Fatalf("unexpected response body: %q", result.body)
	}

	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
