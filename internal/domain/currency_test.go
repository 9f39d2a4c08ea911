package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCatalog(t *testing.T) {
	c := NewCatalog([]Currency{
		{Code: "eur", Name: "Euro"},
		{Code: "XOF", Name: "Franc CFA"},
		{Code: "EUR", Name: "Duplicate"},
		{Code: " "},
	})

	if got := c.Codes(); len(got) != 2 || got[0] != "EUR" || got[1] != "XOF" {
		t.Fatalf("Unexpected codes: %v", got)
	}

	cur, ok := c.Lookup("Eur")
	if !ok || cur.Name != "Euro" {
		t.Errorf("Lookup should be case-insensitive and keep the first entry, got %+v", cur)
	}

	c.SetIconPath("xof", "/tmp/sn.png")
	if cur, _ := c.Lookup("XOF"); cur.IconPath != "/tmp/sn.png" {
		t.Errorf("Expected icon path to be set, got %q", cur.IconPath)
	}

	all := c.All()
	all[0].Name = "mutated"
	if cur, _ := c.Lookup("EUR"); cur.Name != "Euro" {
		t.Error("All() must return a copy")
	}
}

func TestNewCatalogFromCodes(t *testing.T) {
	c := NewCatalogFromCodes([]string{"xof", "EUR", "NGN"})

	if !c.Contains("NGN") {
		t.Error("Unknown codes should still be selectable")
	}
	if cur, _ := c.Lookup("XOF"); cur.Flag != "sn" {
		t.Errorf("Expected default metadata for XOF, got %+v", cur)
	}

	if len(NewCatalogFromCodes(nil).Codes()) != len(DefaultCurrencies) {
		t.Error("Empty selection should fall back to the default catalog")
	}
}

func TestParseTheme(t *testing.T) {
	if th, err := ParseTheme("dark"); err != nil || th != ThemeDark {
		t.Errorf("Expected dark, got %q (%v)", th, err)
	}
	if _, err := ParseTheme("blue"); err != ErrInvalidTheme {
		t.Errorf("Expected ErrInvalidTheme, got %v", err)
	}
}

func TestFavoriteEntry_WellFormed(t *testing.T) {
	good := FavoriteEntry{ID: 1, Amount: decimal.NewFromInt(10), From: "EUR", To: "XOF", Rate: decimal.NewFromInt(655)}
	if !good.WellFormed() {
		t.Error("Expected entry to be well formed")
	}
	if !good.Converted().Equal(decimal.NewFromInt(6550)) {
		t.Errorf("Unexpected converted value %s", good.Converted())
	}

	bad := good
	bad.Rate = decimal.Zero
	if bad.WellFormed() {
		t.Error("Zero rate should not be well formed")
	}

	bad = good
	bad.To = ""
	if bad.WellFormed() {
		t.Error("Empty target should not be well formed")
	}
}

func TestComparisonEntry(t *testing.T) {
	up := NewComparisonEntry("XOF", decimal.RequireFromString("655.957"))
	if up.Direction() != "up" {
		t.Errorf("Expected up, got %s", up.Direction())
	}
	if !up.ChangePct.Equal(decimal.RequireFromString("65495.7")) {
		t.Errorf("Unexpected change %s", up.ChangePct)
	}

	down := NewComparisonEntry("GBP", decimal.RequireFromString("0.85"))
	if down.Direction() != "down" {
		t.Errorf("Expected down, got %s", down.Direction())
	}
	if !down.ChangePct.Equal(decimal.RequireFromString("-15")) {
		t.Errorf("Unexpected change %s", down.ChangePct)
	}
}
