package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// HealthChecker reports whether the local store is usable
type HealthChecker interface {
	Ping() error
	All() (map[string]string, error)
}

// Handler serves the converter REST endpoints
type Handler struct {
	resolver    *service.RateResolver
	catalog     *domain.Catalog
	favorites   *service.FavoritesStore
	comparison  *service.ComparisonService
	historical  *service.HistoricalService
	preferences *service.PreferenceService
	health      HealthChecker
	now         func() time.Time
}

// NewHandler creates the REST handler set from its services
func NewHandler(deps Deps) *Handler {
	return &Handler{
		resolver:    deps.Resolver,
		catalog:     deps.Catalog,
		favorites:   deps.Favorites,
		comparison:  deps.Comparison,
		historical:  deps.Historical,
		preferences: deps.Preferences,
		health:      deps.Health,
		now:         time.Now,
	}
}

// ======================================================================================
// Currencies & conversion
// ======================================================================================

// Currencies lists the selectable currencies.
//
// Endpoint: GET /api/currencies
func (h *Handler) Currencies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.All())
}

// ConvertResponse is a resolved conversion with its display strings
type ConvertResponse struct {
	domain.ConversionView
	Rate decimal.Decimal `json:"rate"`
}

// Convert resolves one conversion.
//
// Endpoint: GET /api/convert?amount=100&from=EUR&to=XOF
// Error: 400 on bad input, 502 when every rate source failed
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, ok := domain.ParseAmount(q.Get("amount"))
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid amount", "amount must be a positive number")
		return
	}
	from, to, err := h.pair(q.Get("from"), q.Get("to"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid currency", err.Error())
		return
	}

	res, err := h.resolver.Resolve(r.Context(), amount, from, to)
	if err != nil {
		h.respondResolveError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, ConvertResponse{ConversionView: res.View(), Rate: res.Rate})
}

// ComparisonRow is one currency of the comparison table
type ComparisonRow struct {
	Code      string          `json:"code"`
	Rate      decimal.Decimal `json:"rate"`
	RateText  string          `json:"rate_text"`
	ChangePct string          `json:"change_pct"`
	Direction string          `json:"direction"`
}

// ComparisonResponse is the comparison table of one base currency
type ComparisonResponse struct {
	Base   string          `json:"base"`
	Source string          `json:"source"`
	Rates  []ComparisonRow `json:"rates"`
}

// Compare returns every catalog currency quoted against base.
//
// Endpoint: GET /api/compare?base=USD
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	base := r.URL.Query().Get("base")
	if base == "" {
		base = "USD"
	}

	cmp, err := h.comparison.Compare(r.Context(), base)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCurrency) {
			respondError(w, http.StatusBadRequest, "invalid currency", err.Error())
			return
		}
		h.respondResolveError(w, err)
		return
	}

	resp := ComparisonResponse{Base: cmp.Base, Source: cmp.Source, Rates: make([]ComparisonRow, 0, len(cmp.Entries))}
	for _, e := range cmp.Entries {
		resp.Rates = append(resp.Rates, ComparisonRow{
			Code:      e.Code,
			Rate:      e.Rate,
			RateText:  domain.FormatRate(e.Rate),
			ChangePct: e.ChangePct.StringFixed(2),
			Direction: e.Direction(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// HistoricalResponse mirrors the historical rates payload
type HistoricalResponse struct {
	Result string `json:"result"`
	*domain.HistoricalSeries
}

// HistoricalRates returns a simulated daily series.
// startDate wins over timeframe; with neither, one month is used.
//
// Endpoint: GET /api/historical-rates?fromCurrency=EUR&toCurrency=XOF&startDate=2024-01-01
// Error: 400 on bad input, 500 {error} when the current rate cannot be resolved
func (h *Handler) HistoricalRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, to, err := h.pair(q.Get("fromCurrency"), q.Get("toCurrency"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid currency", err.Error())
		return
	}

	start := service.StartDateFor(q.Get("timeframe"), h.now())
	if raw := q.Get("startDate"); raw != "" {
		if start, err = service.ParseStartDate(raw); err != nil {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}

	series, err := h.historical.Series(r.Context(), from, to, start)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to fetch historical data: "+err.Error(), nil)
		return
	}

	respondJSON(w, http.StatusOK, HistoricalResponse{Result: "success", HistoricalSeries: series})
}

// ======================================================================================
// Favorites
// ======================================================================================

// FavoriteView is a favorite entry with its display strings
type FavoriteView struct {
	domain.FavoriteEntry
	Converted string `json:"converted"`
	UnitRate  string `json:"unit_rate"`
}

// FavoritesResponse is the favorites list with its cap
type FavoritesResponse struct {
	Max       int            `json:"max"`
	Favorites []FavoriteView `json:"favorites"`
}

func newFavoritesResponse(max int, entries []domain.FavoriteEntry) FavoritesResponse {
	resp := FavoritesResponse{Max: max, Favorites: make([]FavoriteView, 0, len(entries))}
	for _, e := range entries {
		resp.Favorites = append(resp.Favorites, newFavoriteView(e))
	}
	return resp
}

func newFavoriteView(e domain.FavoriteEntry) FavoriteView {
	return FavoriteView{
		FavoriteEntry: e,
		Converted:     domain.FormatAmount(e.Converted()),
		UnitRate:      domain.FormatRate(e.Rate),
	}
}

// ListFavorites returns the bookmarked conversions, most recent first.
//
// Endpoint: GET /api/favorites
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newFavoritesResponse(h.favorites.Max(), h.favorites.List()))
}

// SaveFavoriteRequest is the body of POST /api/favorites
type SaveFavoriteRequest struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Rate   decimal.Decimal `json:"rate"`
}

// SaveFavorite bookmarks a conversion.
//
// Endpoint: POST /api/favorites
// Response: 201 Created with the new entry
// Error: 400 when the amount or rate is not positive
func (h *Handler) SaveFavorite(w http.ResponseWriter, r *http.Request) {
	var req SaveFavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.favorites.Save(req.Amount, req.From, req.To, req.Rate)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to save favorite", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, newFavoriteView(entry))
}

// DeleteFavorite removes a bookmark. Unknown ids succeed without effect.
//
// Endpoint: DELETE /api/favorites/{id}
// Response: 204 No Content
func (h *Handler) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid favorite id", nil)
		return
	}

	if err := h.favorites.Remove(id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to remove favorite", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ======================================================================================
// Preferences & system
// ======================================================================================

// ThemePayload is the body of the theme endpoints
type ThemePayload struct {
	Theme domain.Theme `json:"theme"`
}

// GetTheme returns the stored UI theme.
//
// Endpoint: GET /api/preferences/theme
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ThemePayload{Theme: h.preferences.Theme()})
}

// PutTheme stores the UI theme.
//
// Endpoint: PUT /api/preferences/theme
// Error: 400 for anything but "dark" or "light"
func (h *Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	theme, err := h.preferences.SetTheme(string(req.Theme))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTheme) {
			respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to save theme", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ThemePayload{Theme: theme})
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Records  int    `json:"records"`
	Error    string `json:"error,omitempty"`
}

// Health checks the local store and reports how many keys it holds.
//
// Endpoint: GET /api/system/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Database: "connected"}
	if h.health != nil {
		if err := h.health.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:   "unhealthy",
				Database: "disconnected",
				Error:    err.Error(),
			})
			return
		}
		records, err := h.health.All()
		if err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:   "unhealthy",
				Database: "unreadable",
				Error:    err.Error(),
			})
			return
		}
		resp.Records = len(records)
	}
	respondJSON(w, http.StatusOK, resp)
}

// pair validates a currency pair against the catalog
func (h *Handler) pair(rawFrom, rawTo string) (string, string, error) {
	from := domain.NormalizeCode(rawFrom)
	to := domain.NormalizeCode(rawTo)
	for _, code := range []string{from, to} {
		if !h.catalog.Contains(code) {
			if code == "" {
				return "", "", errors.New("from and to are required")
			}
			return "", "", fmt.Errorf("%w %s", domain.ErrUnknownCurrency, code)
		}
	}
	return from, to, nil
}

// retryAfterSeconds is advertised when every source failed transiently
const retryAfterSeconds = 30

func (h *Handler) respondResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAllSourcesFailed) {
		if domain.IsRetriable(err) {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		}
		respondError(w, http.StatusBadGateway, "exchange rate unavailable", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "conversion failed", err.Error())
}
