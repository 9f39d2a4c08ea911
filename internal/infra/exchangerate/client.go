package exchangerate

import (
	"context"
	"fmt"
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
const SourceName = "exchangerate-api"

// Client is the primary rate source (exchangerate-api.com v6)
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	group      singleflight.Group
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a primary source client from its provider config
func NewClient(cfg infra.ProviderConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: infra.NewHTTPClient(cfg.Timeout()),
		logger:     slog.Default().With("module", "exchangerate_client"),
		now:        time.Now,
	}
}

// Name implements domain.RateSource
func (c *Client) Name() string {
	return SourceName
}

// Quote fetches the full rate table of base.
// Every requested target must be present with a positive number.
func (c *Client) Quote(ctx context.Context, base string, targets ...string) (*domain.RateQuote, error) {
	base = domain.NormalizeCode(base)
	if base == "" {
		return nil, domain.NewBadResponse(SourceName, "empty base currency")
	}

	// Concurrent callers for the same base share one request
	v, err := infra.Coalesce(ctx, &c.group, SourceName, base, func(ctx context.Context) (any, error) {
		return c.fetchLatest(ctx, base)
	})
	if err != nil {
		return nil, err
	}
	rates := v.(*parsedLatest)

	if missing := infra.MissingTargets(rates.rates, base, targets); len(missing) > 0 {
		return nil, domain.NewBadResponse(SourceName, "missing rate for %s", strings.Join(missing, ","))
	}

	return rates.toQuote(), nil
}

// parsedLatest is the validated wire answer, shared across singleflight callers
type parsedLatest struct {
	base        string
	rates       map[string]float64
	retrievedAt time.Time
}

func (p *parsedLatest) toQuote() *domain.RateQuote {
	out := make(map[string]decimal.Decimal, len(p.rates))
	for code, v := range p.rates {
		out[code] = decimal.NewFromFloat(v)
	}
	return &domain.RateQuote{
		Base:        p.base,
		Rates:       out,
		RetrievedAt: p.retrievedAt,
		Source:      SourceName,
	}
}

func (c *Client) fetchLatest(ctx context.Context, base string) (*parsedLatest, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(base))

	var resp latestResponse
	if err := infra.FetchJSON(ctx, c.httpClient, SourceName, endpoint, &resp); err != nil {
		return nil, err
	}

	if resp.Result != "success" {
		reason := "result=" + resp.Result
		if resp.Result == "" {
			reason = "missing result indicator"
		}
		if resp.ErrorType != "" {
			reason += " error-type=" + resp.ErrorType
		}
		return nil, domain.NewBadResponse(SourceName, "%s", reason)
	}

	if len(resp.ConversionRates) == 0 {
		return nil, domain.NewBadResponse(SourceName, "empty conversion_rates")
	}

	retrievedAt := c.now()
	if resp.TimeLastUpdateUnix > 0 {
		retrievedAt = time.Unix(resp.TimeLastUpdateUnix, 0).UTC()
	}

	quoteBase := domain.NormalizeCode(resp.BaseCode)
	if quoteBase == "" {
		quoteBase = base
	}

	parsed := &parsedLatest{
		base:        quoteBase,
		rates:       infra.ParseRates(resp.ConversionRates),
		retrievedAt: retrievedAt,
	}

	c.logger.Debug("Primary quote fetched",
		slog.String("base", parsed.base),
		slog.Int("rates", len(parsed.rates)),
	)
	return parsed, nil
}
