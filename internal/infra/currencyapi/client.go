package currencyapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/infra"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// SourceName identifies quotes produced by this client
const SourceName = "currencyapi"

// Client is the secondary rate source (currencyapi.com v3)
type Client struct {
	baseURL      string
	apiKey       string
	implicitBase string
	httpClient   *http.Client
	group        singleflight.Group
	logger       *slog.Logger
	now          func() time.Time
}

// NewClient creates a secondary source client from its provider config
func NewClient(cfg infra.ProviderConfig) *Client {
	implicit := domain.NormalizeCode(cfg.ImplicitBase)
	if implicit == "" {
		implicit = "USD"
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.URL, "/"),
		apiKey:       cfg.APIKey,
		implicitBase: implicit,
		httpClient:   infra.NewHTTPClient(cfg.Timeout()),
		logger:       slog.Default().With("module", "currencyapi_client"),
		now:          time.Now,
	}
}

// Name implements domain.RateSource
func (c *Client) Name() string {
	return SourceName
}

// Quote asks for base with the given targets. The returned quote's Base is the
// base its rates are really relative to, which may differ from the requested one
// for the flat variant.
func (c *Client) Quote(ctx context.Context, base string, targets ...string) (*domain.RateQuote, error) {
	base = domain.NormalizeCode(base)
	if base == "" {
		return nil, domain.NewBadResponse(SourceName, "empty base currency")
	}
	codes := make([]string, 0, len(targets))
	for _, t := range targets {
		if t = domain.NormalizeCode(t); t != "" {
			codes = append(codes, t)
		}
	}

	v, err := infra.Coalesce(ctx, &c.group, SourceName, infra.QuoteKey(base, codes), func(ctx context.Context) (any, error) {
		return c.fetchLatest(ctx, base, codes)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.RateQuote), nil
}

func (c *Client) fetchLatest(ctx context.Context, base string, targets []string) (*domain.RateQuote, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("base_currency", base)
	if len(targets) > 0 {
		q.Set("currencies", strings.Join(targets, ","))
	}
	endpoint := c.baseURL + "/latest?" + q.Encode()

	var resp latestResponse
	if err := infra.FetchJSON(ctx, c.httpClient, SourceName, endpoint, &resp); err != nil {
		return nil, err
	}

	quote, err := c.normalize(&resp, base)
	if err != nil {
		return nil, err
	}

	// Targets must be quotable from the answer, directly or through its base
	var missing []string
	for _, t := range targets {
		if !quote.Has(t) {
			missing = append(missing, t)
		}
	}
	if quote.Base != base && !quote.Has(base) {
		missing = append(missing, base)
	}
	if len(missing) > 0 {
		return nil, domain.NewBadResponse(SourceName, "missing rate for %s", strings.Join(missing, ","))
	}

	c.logger.Debug("Secondary quote fetched",
		slog.String("requested_base", base),
		slog.String("quote_base", quote.Base),
		slog.Int("rates", len(quote.Rates)),
	)
	return quote, nil
}

// normalize collapses either wire variant into one RateQuote
func (c *Client) normalize(resp *latestResponse, requestedBase string) (*domain.RateQuote, error) {
	switch resp.variant() {
	case variantData:
		raw := make(map[string]json.RawMessage, len(resp.Data))
		for code, entry := range resp.Data {
			raw[code] = entry.Value
		}
		retrievedAt := c.now()
		if resp.Meta != nil {
			if ts, err := time.Parse(time.RFC3339, resp.Meta.LastUpdatedAt); err == nil {
				retrievedAt = ts.UTC()
			}
		}
		return newQuote(requestedBase, infra.ParseRates(raw), retrievedAt), nil

	case variantFlat:
		quoteBase := domain.NormalizeCode(resp.Base)
		if quoteBase == "" {
			quoteBase = c.implicitBase
		}
		retrievedAt := c.now()
		if resp.Timestamp > 0 {
			retrievedAt = time.Unix(resp.Timestamp, 0).UTC()
		}
		return newQuote(quoteBase, infra.ParseRates(resp.Rates), retrievedAt), nil

	default:
		if resp.Message != "" {
			return nil, domain.NewBadResponse(SourceName, "no data: %s", resp.Message)
		}
		return nil, domain.NewBadResponse(SourceName, "no data")
	}
}

func newQuote(base string, rates map[string]float64, retrievedAt time.Time) *domain.RateQuote {
	out := make(map[string]decimal.Decimal, len(rates))
	for code, v := range rates {
		out[code] = decimal.NewFromFloat(v)
	}
	return &domain.RateQuote{
		Base:        base,
		Rates:       out,
		RetrievedAt: retrievedAt,
		Source:      SourceName,
	}
}
