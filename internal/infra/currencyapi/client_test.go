package currencyapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/infra"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, body string, check func(*http.Request)) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return NewClient(infra.ProviderConfig{URL: server.URL + "/v3", APIKey: "cur_test", TimeoutSec: 2})
}

func TestClient_DataVariant(t *testing.T) {
	client := newTestClient(t,
		`{"meta":{"last_updated_at":"2024-01-01T23:59:59Z"},"data":{"XOF":{"code":"XOF","value":655.96}}}`,
		func(r *http.Request) {
			q := r.URL.Query()
			if r.URL.Path != "/v3/latest" {
				t.Errorf("Unexpected path %s", r.URL.Path)
			}
			if q.Get("apikey") != "cur_test" || q.Get("base_currency") != "EUR" || q.Get("currencies") != "XOF" {
				t.Errorf("Unexpected query %s", r.URL.RawQuery)
			}
		})

	q, err := client.Quote(context.Background(), "EUR", "XOF")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if q.Base != "EUR" {
		t.Errorf("Data variant is relative to the requested base, got %s", q.Base)
	}
	rate, ok := q.Rate("XOF")
	if !ok || !rate.Equal(decimal.RequireFromString("655.96")) {
		t.Errorf("Expected 655.96, got %s", rate)
	}
	want := time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC)
	if !q.RetrievedAt.Equal(want) {
		t.Errorf("Expected %v, got %v", want, q.RetrievedAt)
	}
}

func TestClient_FlatVariant(t *testing.T) {
	client := newTestClient(t, `{"base":"USD","timestamp":1700000000,"rates":{"EUR":0.5,"XOF":300}}`, nil)

	q, err := client.Quote(context.Background(), "EUR", "XOF")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if q.Base != "USD" {
		t.Errorf("Flat variant keeps its own base, got %s", q.Base)
	}
	cross, ok := q.CrossRate("EUR", "XOF")
	if !ok || !cross.Equal(decimal.NewFromInt(600)) {
		t.Errorf("Expected cross rate 600, got %s", cross)
	}
}

func TestClient_FlatVariantImplicitBase(t *testing.T) {
	client := newTestClient(t, `{"timestamp":1700000000,"rates":{"EUR":0.5,"XOF":300}}`, nil)

	q, err := client.Quote(context.Background(), "EUR", "XOF")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if q.Base != "USD" {
		t.Errorf("Expected implicit base USD, got %s", q.Base)
	}
}

func TestClient_BadResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no data", `{"message":"Invalid authentication credentials"}`},
		{"missing target", `{"data":{"USD":{"code":"USD","value":1.08}}}`},
		{"non numeric value", `{"data":{"XOF":{"code":"XOF","value":"n/a"}}}`},
		{"flat without from", `{"base":"USD","rates":{"XOF":300}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.body, nil)

			_, err := client.Quote(context.Background(), "EUR", "XOF")
			var bad *domain.BadResponseError
			if !errors.As(err, &bad) {
				t.Fatalf("Expected BadResponseError, got %v", err)
			}
		})
	}
}
