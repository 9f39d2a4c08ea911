package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"xof_converter/internal/domain"

	"golang.org/x/sync/singleflight"
)

// maxErrorBody caps how much of a failed response body ends up in errors
const maxErrorBody = 512

// NewHTTPClient builds the shared client used by the rate providers
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 20
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Coalesce runs fetch once per key for all concurrent callers. The shared
// fetch is detached from any single caller's cancellation and stays bounded
// by the HTTP client timeout; each caller still stops waiting on its own ctx.
func Coalesce(ctx context.Context, group *singleflight.Group, source, key string, fetch func(context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fetch(shared)
	})

	select {
	case <-ctx.Done():
		return nil, domain.NewNetworkError(source, "request", ctx.Err())
	case res := <-ch:
		return res.Val, res.Err
	}
}

// FetchJSON performs a GET and decodes the JSON body into out.
// Errors are classified for the resolution policy:
// transport failures are *domain.NetworkError, non-2xx answers are
// *domain.ProviderError and undecodable bodies are *domain.BadResponseError.
func FetchJSON(ctx context.Context, client *http.Client, source, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.NewFatalNetworkError(source, "build request", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewNetworkError(source, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.ProviderError{
			Source:     source,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(source, "read body", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewBadResponse(source, "decode: %v", err)
	}

	return nil
}

// ParseRates converts a raw code→number mapping into usable rates.
// Entries that are not finite positive numbers are skipped; callers decide
// whether a missing requested target makes the whole answer bad.
func ParseRates(raw map[string]json.RawMessage) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for code, msg := range raw {
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			continue
		}
		if !domain.ValidRate(v) {
			continue
		}
		out[domain.NormalizeCode(code)] = v
	}
	return out
}

// MissingTargets lists the requested codes absent from rates (base excluded)
func MissingTargets(rates map[string]float64, base string, targets []string) []string {
	var missing []string
	for _, t := range targets {
		t = domain.NormalizeCode(t)
		if t == base {
			continue
		}
		if _, ok := rates[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// QuoteKey builds a singleflight key for a base and target set
func QuoteKey(base string, targets []string) string {
	return fmt.Sprintf("%s|%s", domain.NormalizeCode(base), strings.Join(targets, ","))
}
