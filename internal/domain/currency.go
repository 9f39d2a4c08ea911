package domain

import (
	"strings"
	"sync"
)

// Currency is an entry of the immutable currency catalog
type Currency struct {
	Code     string `json:"code"`      // ISO-4217 code (e.g., "XOF")
	Name     string `json:"name"`      // Display name
	Flag     string `json:"flag"`      // ISO-3166 alpha-2 region used for the icon
	IconPath string `json:"icon_path"` // Local icon path, empty until synced
}

// DefaultCurrencies is the catalog offered by the converter form.
var DefaultCurrencies = []Currency{
	{Code: "USD", Name: "Dollar américain", Flag: "us"},
	{Code: "EUR", Name: "Euro", Flag: "eu"},
	{Code: "GBP", Name: "Livre sterling", Flag: "gb"},
	{Code: "JPY", Name: "Yen japonais", Flag: "jp"},
	{Code: "CAD", Name: "Dollar canadien", Flag: "ca"},
	{Code: "AUD", Name: "Dollar australien", Flag: "au"},
	{Code: "CHF", Name: "Franc suisse", Flag: "ch"},
	{Code: "CNY", Name: "Yuan chinois", Flag: "cn"},
	{Code: "XOF", Name: "Franc CFA (BCEAO)", Flag: "sn"},
}

// Catalog is a read-only lookup over the selectable currencies
type Catalog struct {
	mu     sync.RWMutex // Guards IconPath updates
	list   []Currency
	byCode map[string]int
}

// NewCatalog builds a catalog, keeping the given order and dropping
// duplicate or empty codes.
func NewCatalog(currencies []Currency) *Catalog {
	c := &Catalog{byCode: make(map[string]int, len(currencies))}
	for _, cur := range currencies {
		code := NormalizeCode(cur.Code)
		if code == "" {
			continue
		}
		if _, dup := c.byCode[code]; dup {
			continue
		}
		cur.Code = code
		c.byCode[code] = len(c.list)
		c.list = append(c.list, cur)
	}
	return c
}

// NewCatalogFromCodes restricts the default catalog to the given codes.
// Unknown codes are kept with the code as display name.
func NewCatalogFromCodes(codes []string) *Catalog {
	if len(codes) == 0 {
		return NewCatalog(DefaultCurrencies)
	}
	defaults := NewCatalog(DefaultCurrencies)
	selected := make([]Currency, 0, len(codes))
	for _, code := range codes {
		if cur, ok := defaults.Lookup(code); ok {
			selected = append(selected, cur)
			continue
		}
		code = NormalizeCode(code)
		selected = append(selected, Currency{Code: code, Name: code})
	}
	return NewCatalog(selected)
}

// All returns a copy of the catalog in display order
func (c *Catalog) All() []Currency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Currency, len(c.list))
	copy(out, c.list)
	return out
}

// Codes returns the currency codes in display order
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.list))
	for i, cur := range c.list {
		out[i] = cur.Code
	}
	return out
}

// Lookup finds a currency by code (case-insensitive)
func (c *Catalog) Lookup(code string) (Currency, bool) {
	idx, ok := c.byCode[NormalizeCode(code)]
	if !ok {
		return Currency{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list[idx], true
}

// Contains reports whether the code is part of the catalog
func (c *Catalog) Contains(code string) bool {
	_, ok := c.byCode[NormalizeCode(code)]
	return ok
}

// SetIconPath records the local icon of a currency
func (c *Catalog) SetIconPath(code, path string) {
	if idx, ok := c.byCode[NormalizeCode(code)]; ok {
		c.mu.Lock()
		c.list[idx].IconPath = path
		c.mu.Unlock()
	}
}

// NormalizeCode trims and upper-cases a currency code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
