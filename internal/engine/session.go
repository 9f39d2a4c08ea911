package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"xof_converter/internal/domain"
	"xof_converter/internal/event"
	"xof_converter/internal/infra"

	"github.com/shopspring/decimal"
)

// MsgRateUnavailable is shown when no source could provide a rate
const MsgRateUnavailable = "Unable to fetch the exchange rate. Please try again later."

// FavoriteSaver persists a bookmarked conversion
type FavoriteSaver interface {
	Save(amount decimal.Decimal, from, to string, rate decimal.Decimal) (domain.FavoriteEntry, error)
}

// State is what the presentation layer renders for one session
type State struct {
	Amount     string                 `json:"amount"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Loading    bool                   `json:"loading"`
	Result     *domain.ConversionView `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Toast      string                 `json:"toast,omitempty"` // Shown once, cleared by the next update
	Generation uint64                 `json:"generation"`
}

// SessionOptions configures a converter session
type SessionOptions struct {
	Debounce  time.Duration
	From      string
	To        string
	Catalog   *domain.Catalog // Optional; restricts selectable codes
	Favorites FavoriteSaver   // Optional
	Metrics   *infra.Metrics
	InboxSize int
}

// Session is the single-threaded converter loop of one user form.
// Inputs, debounce timers and resolution completions all arrive on one inbox
// and are processed by Run; only network calls leave the loop goroutine.
type Session struct {
	inbox    chan event.Event
	done     chan struct{}
	resolver domain.Resolver
	opts     SessionOptions
	logger   *slog.Logger

	// Boundary: used to push state to the UI
	onUpdate func(State)

	// Owned by the Run goroutine
	runCtx    context.Context
	amountRaw string
	amount    decimal.Decimal
	amountOK  bool
	from      string
	to        string
	gen       uint64
	timer     *time.Timer
	inFlight  bool
	dropped   bool
	result    *domain.ConversionResult
	errMsg    string

	mu       sync.RWMutex // Used only for external reads
	snapshot State
}

// NewSession creates a session. onUpdate is called from the loop goroutine
// after every state change and must not block.
func NewSession(resolver domain.Resolver, opts SessionOptions, onUpdate func(State)) *Session {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 64
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}
	s := &Session{
		inbox:    make(chan event.Event, opts.InboxSize),
		done:     make(chan struct{}),
		resolver: resolver,
		opts:     opts,
		logger:   slog.Default().With("module", "session"),
		onUpdate: onUpdate,
		from:     domain.NormalizeCode(opts.From),
		to:       domain.NormalizeCode(opts.To),
	}
	s.snapshot = State{From: s.from, To: s.to}
	return s
}

// SetAmount posts a raw amount edit
func (s *Session) SetAmount(raw string) { s.postInput(event.FieldAmount, raw) }

// SetFrom posts a source currency change
func (s *Session) SetFrom(code string) { s.postInput(event.FieldFrom, code) }

// SetTo posts a target currency change
func (s *Session) SetTo(code string) { s.postInput(event.FieldTo, code) }

// Swap exchanges source and target currencies
func (s *Session) Swap() { s.postInput(event.FieldSwap, "") }

// SaveFavorite bookmarks the current conversion
func (s *Session) SaveFavorite() { s.post(&event.SaveFavoriteEvent{}) }

// State returns a copy of the last published state (external read)
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) postInput(field event.Field, value string) {
	ev := event.AcquireInputEvent()
	ev.Field = field
	ev.Value = value
	if !s.post(ev) {
		event.ReleaseInputEvent(ev)
	}
}

func (s *Session) post(ev event.Event) bool {
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Run starts the session loop. This MUST be run in a single goroutine.
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	s.logger.Debug("Session started", slog.String("pair", s.from+"/"+s.to))

	defer func() {
		close(s.done)
		if s.timer != nil {
			s.timer.Stop()
		}
		s.logger.Debug("Session stopped")
	}()

	s.publish("")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Session) processEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.InputEvent:
		s.handleInput(e)
		event.ReleaseInputEvent(e)
	case *event.DebounceEvent:
		s.handleDebounce(e)
	case *event.ResolvedEvent:
		s.handleResolved(e)
	case *event.SaveFavoriteEvent:
		s.handleSaveFavorite()
	default:
		s.logger.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (s *Session) handleInput(e *event.InputEvent) {
	switch e.Field {
	case event.FieldAmount:
		s.amountRaw = e.Value
		s.amount, s.amountOK = domain.ParseAmount(e.Value)
	case event.FieldFrom, event.FieldTo:
		code := domain.NormalizeCode(e.Value)
		if s.opts.Catalog != nil && !s.opts.Catalog.Contains(code) {
			s.publish(fmt.Sprintf("%s: %s", domain.ErrUnknownCurrency, code))
			return
		}
		if e.Field == event.FieldFrom {
			s.from = code
		} else {
			s.to = code
		}
	case event.FieldSwap:
		s.from, s.to = s.to, s.from
	default:
		return
	}

	// Every edit supersedes whatever is pending or in flight
	s.gen++
	s.result = nil
	s.errMsg = ""

	if !s.amountOK {
		s.stopTimer()
		s.publish("")
		return
	}

	s.schedule()
	s.publish("")
}

// schedule restarts the quiet period for the current generation
func (s *Session) schedule() {
	s.stopTimer()
	gen := s.gen
	s.timer = time.AfterFunc(s.opts.Debounce, func() {
		s.post(&event.DebounceEvent{Gen: gen})
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) handleDebounce(e *event.DebounceEvent) {
	if e.Gen != s.gen {
		return // Superseded before firing
	}
	s.timer = nil

	if s.inFlight {
		s.dropped = true
		s.opts.Metrics.RecordDroppedTrigger()
		s.logger.Debug("Trigger dropped, resolution in flight", slog.Uint64("gen", e.Gen))
		return
	}
	s.startResolution()
	s.publish("")
}

func (s *Session) startResolution() {
	if !s.amountOK {
		return
	}

	s.inFlight = true
	gen, amount, from, to := s.gen, s.amount, s.from, s.to
	ctx := s.runCtx

	go func() {
		res, err := s.resolver.Resolve(ctx, amount, from, to)
		s.post(&event.ResolvedEvent{Gen: gen, Result: res, Err: err})
	}()
}

func (s *Session) handleResolved(e *event.ResolvedEvent) {
	s.inFlight = false

	if e.Gen != s.gen {
		s.opts.Metrics.RecordStaleResult()
		s.logger.Debug("Stale resolution discarded", slog.Uint64("gen", e.Gen), slog.Uint64("current", s.gen))

		// Catch up once for the trigger that was dropped while this one ran.
		// A pending timer starts the resolution itself when the quiet period ends.
		if s.dropped {
			s.dropped = false
			if s.timer == nil {
				s.startResolution()
			}
		}
		s.publish("")
		return
	}
	s.dropped = false

	switch {
	case e.Err != nil:
		s.result = nil
		s.errMsg = MsgRateUnavailable
		if !errors.Is(e.Err, domain.ErrAllSourcesFailed) {
			s.errMsg = e.Err.Error()
		}
		s.logger.Warn("Resolution failed", slog.Any("error", e.Err))
	case !e.Result.Valid():
		s.result = nil
		s.errMsg = ""
	default:
		s.result = e.Result
		s.errMsg = ""
	}
	s.publish("")
}

func (s *Session) handleSaveFavorite() {
	if s.opts.Favorites == nil {
		s.publish("Favorites are not available")
		return
	}

	rate := decimal.Zero
	if s.result != nil {
		rate = s.result.Rate
	}
	amount := decimal.Zero
	if s.amountOK {
		amount = s.amount
	}

	if _, err := s.opts.Favorites.Save(amount, s.from, s.to, rate); err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.publish(vErr.Error())
			return
		}
		s.logger.Error("Failed to save favorite", slog.Any("error", err))
		s.publish("Failed to save favorite")
		return
	}
	s.publish("Favorite saved")
}

// publish refreshes the external snapshot and notifies the UI
func (s *Session) publish(toast string) {
	st := State{
		Amount:     s.amountRaw,
		From:       s.from,
		To:         s.to,
		Loading:    s.inFlight,
		Error:      s.errMsg,
		Toast:      toast,
		Generation: s.gen,
	}
	if s.result != nil {
		view := s.result.View()
		st.Result = &view
	}

	s.mu.Lock()
	s.snapshot = st
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(st)
	}
}
