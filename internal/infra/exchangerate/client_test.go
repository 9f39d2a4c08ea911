package exchangerate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/infra"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(infra.ProviderConfig{URL: server.URL + "/v6", APIKey: "test-key", TimeoutSec: 2})
	return client, server
}

func TestClient_Quote(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"result":"success","base_code":"EUR","time_last_update_unix":1700000000,"conversion_rates":{"EUR":1,"XOF":655.957,"USD":1.0843}}`))
	})

	q, err := client.Quote(context.Background(), "eur", "XOF")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if gotPath != "/v6/test-key/latest/EUR" {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if q.Base != "EUR" || q.Source != SourceName {
		t.Errorf("Unexpected quote header %+v", q)
	}
	rate, ok := q.Rate("XOF")
	if !ok || !rate.Equal(decimal.RequireFromString("655.957")) {
		t.Errorf("Expected 655.957, got %s", rate)
	}
	if !q.RetrievedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expected update timestamp from payload, got %v", q.RetrievedAt)
	}
}

func TestClient_BadResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"error result", `{"result":"error","error-type":"invalid-key"}`},
		{"missing indicator", `{"conversion_rates":{"XOF":655.957}}`},
		{"missing target", `{"result":"success","conversion_rates":{"USD":1.08}}`},
		{"non numeric target", `{"result":"success","conversion_rates":{"XOF":"abc"}}`},
		{"non positive target", `{"result":"success","conversion_rates":{"XOF":0}}`},
		{"not json", `<html>oops</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.Quote(context.Background(), "EUR", "XOF")
			var bad *domain.BadResponseError
			if !errors.As(err, &bad) {
				t.Fatalf("Expected BadResponseError, got %v", err)
			}
		})
	}
}

func TestClient_ProviderError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("quota reached"))
	})

	_, err := client.Quote(context.Background(), "EUR", "XOF")
	var perr *domain.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests || !strings.Contains(perr.Body, "quota") {
		t.Errorf("Unexpected provider error %+v", perr)
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(infra.ProviderConfig{URL: server.URL, APIKey: "k", TimeoutSec: 1})

	_, err := client.Quote(context.Background(), "EUR", "XOF")
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("Expected NetworkError, got %v", err)
	}
}

func TestClient_CoalescesConcurrentRequests(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"result":"success","base_code":"EUR","conversion_rates":{"XOF":655.957}}`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Quote(context.Background(), "EUR", "XOF"); err != nil {
				t.Errorf("Quote failed: %v", err)
			}
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 upstream call, got %d", n)
	}
}

func TestClient_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Write([]byte(`{"result":"success","base_code":"EUR","conversion_rates":{"XOF":655.957}}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := client.Quote(ctx, "EUR", "XOF")
		first <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	second := make(chan error, 1)
	go func() {
		_, err := client.Quote(context.Background(), "EUR", "XOF")
		second <- err
	}()
	time.Sleep(50 * time.Millisecond)

	// The first caller goes away while the shared request is still running
	cancel()
	select {
	case err := <-first:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected the cancelled caller to see context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Cancelled caller kept waiting on the shared request")
	}

	close(release)
	if err := <-second; err != nil {
		t.Errorf("Remaining caller must still get the quote, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected 1 upstream call, got %d", n)
	}
}
