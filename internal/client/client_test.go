package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/metrics-loadgen/internal/workload"
)

func TestExecuteSendsRequest(t *testing.T) {
	var gotMethod, gotPath, gotCT, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotCT = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = w.Write([]byte(`{"status":"processed"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	res := c.Execute(context.Background(), &workload.Request{
		Task:   "send_metric",
		Method: http.MethodPost,
		Path:   "/metrics",
		Header: header,
		Body:   []byte(`{"device_id":"device_1"}`),
	}, "/metrics", "device_1")

	if res.Failed() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if gotMethod != http.MethodPost || gotPath != "/metrics" || gotCT != "application/json" {
		t.Fatalf("unexpected request %s %s (%s)", gotMethod, gotPath, gotCT)
	}
	if gotBody != `{"device_id":"device_1"}` {
		t.Fatalf("unexpected body %s", gotBody)
	}
	if res.StatusCode != http.StatusOK || res.BytesRecv == 0 || res.BytesSent == 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Latency <= 0 {
		t.Fatalf("expected positive latency")
	}
}

func TestExecuteNon2xxIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, time.Second)
	res := c.Execute(context.Background(), &workload.Request{Method: http.MethodGet, Path: "/health"}, "/health", "")
	if !res.Failed() || res.Transport() {
		t.Fatalf("expected status failure, got %+v", res)
	}
	if !errors.Is(res.Err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", res.Err)
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := New(url, time.Second)
	res := c.Execute(context.Background(), &workload.Request{Method: http.MethodGet, Path: "/health"}, "/health", "")
	if !res.Failed() || !res.Transport() {
		t.Fatalf("expected transport failure, got %+v", res)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := New(srv.URL, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := c.Execute(ctx, &workload.Request{Method: http.MethodGet, Path: "/summary"}, "/summary", "")
	if !res.Transport() || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected cancelled transport failure, got %+v", res)
	}
}

func TestExecuteTruncatedBodyIsTransportFailure(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer lis.Close()
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 1000\r\n\r\n0123456789"))
	}()

	c, _ := New("http://"+lis.Addr().String(), 2*time.Second)
	res := c.Execute(context.Background(), &workload.Request{Method: http.MethodGet, Path: "/summary"}, "/summary", "")
	if !res.Failed() || !res.Transport() {
		t.Fatalf("expected truncated body to be a transport failure, got %+v", res)
	}
	if res.StatusCode != http.StatusOK || res.BytesRecv != 10 {
		t.Fatalf("expected status 200 with 10 bytes read, got %d/%d", res.StatusCode, res.BytesRecv)
	}
	if errors.Is(res.Err, ErrUnexpectedStatus) {
		t.Fatalf("body read failure must not be reported as a status failure: %v", res.Err)
	}
}

func TestExecuteTimeoutWhileReadingBody(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, _ := New(srv.URL, 100*time.Millisecond)
	res := c.Execute(context.Background(), &workload.Request{Method: http.MethodGet, Path: "/analytics"}, "/analytics", "")
	if !res.Failed() || !res.Transport() {
		t.Fatalf("expected body timeout to be a transport failure, got %+v", res)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected headers to have been read, got status %d", res.StatusCode)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"localhost:8080", "://", ""} {
		if _, err := New(u, 0); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
}
