package engine

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/infra"
	"xof_converter/internal/infra/storage"
	"xof_converter/internal/service"

	"github.com/shopspring/decimal"
)

const testDebounce = 30 * time.Millisecond

// fakeResolver records calls. When gated, every call blocks until a token
// is sent on release.
type fakeResolver struct {
	mu      sync.Mutex
	calls   []decimal.Decimal
	rate    decimal.Decimal
	err     error
	gated   bool
	release chan struct{}
}

func newFakeResolver(rate string) *fakeResolver {
	return &fakeResolver{
		rate:    decimal.RequireFromString(rate),
		release: make(chan struct{}),
	}
}

func (f *fakeResolver) Resolve(ctx context.Context, amount decimal.Decimal, from, to string) (*domain.ConversionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, amount)
	gated, err := f.gated, f.err
	f.mu.Unlock()

	if gated {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return domain.NewConversionResult(amount, from, to, f.rate, time.Now(), "fake"), nil
}

func (f *fakeResolver) Calls() []decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]decimal.Decimal, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeResolver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func startSession(t *testing.T, r domain.Resolver, opts SessionOptions) *Session {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = testDebounce
	}
	if opts.From == "" {
		opts.From, opts.To = "EUR", "XOF"
	}
	if opts.Metrics == nil {
		opts.Metrics = &infra.Metrics{}
	}

	s := NewSession(r, opts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestSession_DebounceCoalescesEdits(t *testing.T) {
	r := newFakeResolver("655.957")
	s := startSession(t, r, SessionOptions{})

	s.SetAmount("1")
	s.SetAmount("10")
	s.SetAmount("100")

	waitFor(t, "result", func() bool { return s.State().Result != nil })
	time.Sleep(3 * testDebounce)

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected exactly 1 resolution, got %d", len(calls))
	}
	if !calls[0].Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected resolution for the final amount, got %s", calls[0])
	}

	st := s.State()
	if st.Result.Converted != "65595.70" || st.Result.UnitRate != "655.9570" {
		t.Errorf("Unexpected result %+v", st.Result)
	}
	if st.Loading {
		t.Error("Loading must be cleared")
	}
}

func TestSession_InvalidAmountSkipsNetwork(t *testing.T) {
	r := newFakeResolver("655.957")
	s := startSession(t, r, SessionOptions{})

	for _, raw := range []string{"", "abc", "0", "-4"} {
		s.SetAmount(raw)
	}
	waitFor(t, "input processed", func() bool { return s.State().Generation == 4 })
	time.Sleep(3 * testDebounce)

	if len(r.Calls()) != 0 {
		t.Errorf("No resolution expected, got %d", len(r.Calls()))
	}
	if s.State().Result != nil {
		t.Error("No result expected")
	}
}

func TestSession_StaleResultAndCatchUp(t *testing.T) {
	r := newFakeResolver("655.957")
	r.gated = true
	metrics := &infra.Metrics{}
	s := startSession(t, r, SessionOptions{Metrics: metrics})

	s.SetAmount("100")
	waitFor(t, "first resolution", func() bool { return len(r.Calls()) == 1 })

	// Edit while the first resolution is in flight: its trigger is dropped
	s.SetAmount("200")
	waitFor(t, "dropped trigger", func() bool { return metrics.Snapshot().DroppedTriggers == 1 })

	// The first completion is stale; a catch-up resolution for 200 follows
	r.release <- struct{}{}
	waitFor(t, "catch-up resolution", func() bool { return len(r.Calls()) == 2 })

	if s.State().Result != nil {
		t.Error("A stale result must never be displayed")
	}

	r.release <- struct{}{}
	waitFor(t, "current result", func() bool { return s.State().Result != nil })

	st := s.State()
	if st.Result.Amount != "200" {
		t.Errorf("Displayed result must match the current input, got %s", st.Result.Amount)
	}
	if calls := r.Calls(); !calls[1].Equal(decimal.NewFromInt(200)) {
		t.Errorf("Catch-up must use the current amount, got %s", calls[1])
	}
	if metrics.Snapshot().StaleResults != 1 {
		t.Errorf("Expected 1 stale result, got %d", metrics.Snapshot().StaleResults)
	}
}

func TestSession_CatchUpWaitsForQuietPeriod(t *testing.T) {
	const debounce = 200 * time.Millisecond

	r := newFakeResolver("655.957")
	r.gated = true
	metrics := &infra.Metrics{}
	s := startSession(t, r, SessionOptions{Debounce: debounce, Metrics: metrics})

	s.SetAmount("100")
	waitFor(t, "first resolution", func() bool { return len(r.Calls()) == 1 })

	s.SetAmount("200")
	waitFor(t, "dropped trigger", func() bool { return metrics.Snapshot().DroppedTriggers == 1 })

	// A further edit restarts the quiet period before the stale completion lands
	s.SetAmount("300")
	lastEdit := time.Now()
	r.release <- struct{}{}
	waitFor(t, "stale result", func() bool { return metrics.Snapshot().StaleResults == 1 })

	if n := len(r.Calls()); n != 1 {
		t.Fatalf("No fetch may start inside the quiet period, got %d calls", n)
	}

	waitFor(t, "resolution after quiet period", func() bool { return len(r.Calls()) == 2 })
	if elapsed := time.Since(lastEdit); elapsed < debounce {
		t.Errorf("Resolution started %v after the last edit, want at least %v", elapsed, debounce)
	}
	if calls := r.Calls(); !calls[1].Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected the latest amount, got %s", calls[1])
	}

	r.release <- struct{}{}
	waitFor(t, "current result", func() bool { return s.State().Result != nil })
	if got := len(r.Calls()); got != 2 {
		t.Errorf("Expected exactly 2 resolutions, got %d", got)
	}
}

func TestSession_AllSourcesFailedClearsResult(t *testing.T) {
	r := newFakeResolver("655.957")
	s := startSession(t, r, SessionOptions{})

	s.SetAmount("100")
	waitFor(t, "first result", func() bool { return s.State().Result != nil })

	r.setErr(&domain.AllSourcesFailedError{From: "EUR", To: "XOF"})
	s.SetAmount("150")
	waitFor(t, "error", func() bool { return s.State().Error != "" })

	st := s.State()
	if st.Result != nil {
		t.Error("Result must be cleared after a failure")
	}
	if st.Error != MsgRateUnavailable {
		t.Errorf("Unexpected error message %q", st.Error)
	}
}

func TestSession_SwapAndCurrencyChange(t *testing.T) {
	r := newFakeResolver("0.0015")
	s := startSession(t, r, SessionOptions{Catalog: domain.NewCatalog(domain.DefaultCurrencies)})

	s.SetAmount("1000")
	s.Swap()
	waitFor(t, "result", func() bool { return s.State().Result != nil })

	st := s.State()
	if st.From != "XOF" || st.To != "EUR" || st.Result.From != "XOF" {
		t.Errorf("Expected swapped pair, got %+v", st)
	}

	s.SetTo("BTC")
	waitFor(t, "toast", func() bool { return s.State().Toast != "" })
	if s.State().To != "EUR" {
		t.Error("Unknown currency must be ignored")
	}
}

func TestSession_SaveFavorite(t *testing.T) {
	st, err := storage.NewStorage(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	defer st.Close()
	fav := service.NewFavoritesStore(st, 5)

	r := newFakeResolver("655.957")
	s := startSession(t, r, SessionOptions{Favorites: fav})

	// Nothing resolved yet: rejected with a toast
	s.SaveFavorite()
	waitFor(t, "validation toast", func() bool { return s.State().Toast != "" })
	if len(fav.List()) != 0 {
		t.Fatal("Nothing may be saved without a resolved conversion")
	}

	s.SetAmount("100")
	waitFor(t, "result", func() bool { return s.State().Result != nil })

	s.SaveFavorite()
	waitFor(t, "saved", func() bool { return len(fav.List()) == 1 })

	entry := fav.List()[0]
	if entry.From != "EUR" || entry.To != "XOF" || !entry.Rate.Equal(decimal.RequireFromString("655.957")) {
		t.Errorf("Unexpected favorite %+v", entry)
	}
}

func TestSession_OnUpdate(t *testing.T) {
	var mu sync.Mutex
	var states []State

	r := newFakeResolver("655.957")
	s := NewSession(r, SessionOptions{Debounce: testDebounce, From: "EUR", To: "XOF", Metrics: &infra.Metrics{}}, func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.SetAmount("1")
	waitFor(t, "result", func() bool { return s.State().Result != nil })

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 3 {
		t.Fatalf("Expected initial, input and result updates, got %d", len(states))
	}
	if states[0].From != "EUR" || states[0].Result != nil {
		t.Errorf("Unexpected initial state %+v", states[0])
	}
}

func TestSession_StoppedSessionDropsInput(t *testing.T) {
	r := newFakeResolver("1")
	s := NewSession(r, SessionOptions{Debounce: testDebounce, Metrics: &infra.Metrics{}, InboxSize: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	// Must not block once the loop is gone
	for i := 0; i < 5; i++ {
		s.SetAmount("1")
	}
	if errors.Is(ctx.Err(), context.Canceled) && len(r.Calls()) != 0 {
		t.Error("No resolution expected after stop")
	}
}
