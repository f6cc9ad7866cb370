package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HusainCode/pico-firmware/internal/config"
	"github.com/HusainCode/pico-firmware/internal/link"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func agentConfig(serverURL string) config.Agent {
	return config.Agent{
		ServerURL:           serverURL,
		APIKey:              "k",
		StationID:           "test",
		PayloadFormat:       "csv",
		SampleInterval:      20 * time.Millisecond,
		DeliveryTimeout:     time.Second,
		DeliveryMaxRetries:  2,
		DeliveryBackoffBase: 2,
		DeliveryBackoffUnit: 10 * time.Millisecond,
		LinkTimeout:         300 * time.Millisecond,
		SensorDriver:        "sim",
	}
}

func TestRunAgent_DeliversUntilCanceled(t *testing.T) {
	var posts atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" || r.Header.Get("X-Station-ID") != "test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if strings.Count(string(body), ",") != 7 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if posts.Add(1) >= 3 {
			cancel()
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	done := make(chan error, 1)
	go func() { done <- RunAgent(ctx, agentConfig(srv.URL+"/telemetry"), quiet) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("RunAgent = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunAgent did not stop")
	}
	if n := posts.Load(); n < 3 {
		t.Errorf("posts = %d, want >= 3", n)
	}
}

func TestRunAgent_UnreachableCollectorIsFatal(t *testing.T) {
	cfg := agentConfig("http://" + freeAddr(t) + "/telemetry")

	err := RunAgent(context.Background(), cfg, quiet)
	if !errors.Is(err, link.ErrConnectivity) {
		t.Fatalf("RunAgent = %v, want ErrConnectivity", err)
	}
}

func TestRunCollector_ServesAndShutsDown(t *testing.T) {
	addr := freeAddr(t)
	cfg := config.Collector{
		HTTPAddr:     addr,
		APIKey:       "k",
		Path:         filepath.Join(t.TempDir(), "collector.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- RunCollector(ctx, cfg, quiet) }()

	base := "http://" + addr
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("collector not healthy: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/telemetry", strings.NewReader("1,2,3,4,5,6,1,1"))
	req.Header.Set("Authorization", "Bearer k")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-Station-ID", "kitchen")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("post status = %d, want 201", resp.StatusCode)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `pico_collector_readings_ingested_total{format="csv"} 1`) {
		t.Errorf("metrics missing ingested counter:\n%s", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("RunCollector = %v, want context.Canceled", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("RunCollector did not stop")
	}
}
