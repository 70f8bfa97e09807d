package cart

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/rs/zerolog"
)

// State is the lifecycle of the cart view.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Reconciler owns the unified cart view. Mutations are not optimistic:
// each one runs against the active backend and then refreshes the view.
type Reconciler struct {
	auth   AuthState
	server Backend
	guest  Backend
	logger zerolog.Logger

	// seq numbers refreshes; only the latest one may publish its result.
	seq atomic.Uint64

	mutation sync.Mutex
	busy     atomic.Bool

	mu    sync.RWMutex
	cart  *model.Cart
	state State
}

// NewReconciler creates a reconciler that uses server while auth reports a
// signed-in user and guest otherwise.
func NewReconciler(auth AuthState, server, guest Backend, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		auth:   auth,
		server: server,
		guest:  guest,
		logger: logger.With().Str("component", "cart").Logger(),
	}
}

func (r *Reconciler) backend() Backend {
	if r.auth.IsAuthenticated() {
		return r.server
	}
	return r.guest
}

// Refresh reloads the view from the active backend. When several refreshes
// overlap, only the most recently started one updates the view.
func (r *Reconciler) Refresh(ctx context.Context) error {
	seq := r.seq.Add(1)

	r.mu.Lock()
	r.state = StateLoading
	r.mu.Unlock()

	cart, err := r.backend().View(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq.Load() {
		r.logger.Debug().Uint64("seq", seq).Msg("discarding stale cart refresh")
		return err
	}

	if err != nil {
		if r.cart != nil {
			r.state = StateReady
		} else {
			r.state = StateUninitialized
		}
		r.logger.Warn().Err(err).Msg("failed to refresh cart")
		return err
	}

	r.cart = cart
	r.state = StateReady
	return nil
}

// AddItem adds quantity units of productID; a non-positive quantity adds one.
func (r *Reconciler) AddItem(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return model.ErrMissingProduct
	}
	if quantity <= 0 {
		quantity = 1
	}
	return r.mutate(ctx, "add", func(b Backend) error {
		return b.Add(ctx, productID, quantity)
	})
}

// UpdateItemQuantity sets the quantity of a cart line. For the guest cart
// an unknown item is ignored and the view is still refreshed.
func (r *Reconciler) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) error {
	return r.mutate(ctx, "update", func(b Backend) error {
		return b.SetQuantity(ctx, itemID, quantity)
	})
}

// RemoveItem deletes a cart line.
func (r *Reconciler) RemoveItem(ctx context.Context, itemID string) error {
	return r.mutate(ctx, "remove", func(b Backend) error {
		return b.Remove(ctx, itemID)
	})
}

// Clear empties the active cart.
func (r *Reconciler) Clear(ctx context.Context) error {
	return r.mutate(ctx, "clear", func(b Backend) error {
		return b.Clear(ctx)
	})
}

// mutate runs one mutation at a time. A failed mutation leaves the view
// untouched and skips the refresh.
func (r *Reconciler) mutate(ctx context.Context, op string, fn func(Backend) error) error {
	r.mutation.Lock()
	defer r.mutation.Unlock()

	r.busy.Store(true)
	defer r.busy.Store(false)

	if err := fn(r.backend()); err != nil {
		r.logger.Warn().Err(err).Str("op", op).Msg("cart mutation failed")
		return err
	}

	r.logger.Debug().Str("op", op).Msg("cart mutation applied")
	return r.Refresh(ctx)
}

// Busy reports whether a mutation is in flight.
func (r *Reconciler) Busy() bool {
	return r.busy.Load()
}

// Cart returns a copy of the current view, or nil before the first
// successful refresh.
func (r *Reconciler) Cart() *model.Cart {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cart == nil {
		return nil
	}
	return &model.Cart{ID: r.cart.ID, Items: slices.Clone(r.cart.Items)}
}

// State returns the lifecycle state of the view.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Loading reports whether a refresh is in flight.
func (r *Reconciler) Loading() bool {
	return r.State() == StateLoading
}

// ItemsCount is the total quantity across the view.
func (r *Reconciler) ItemsCount() int {
	return pricing.ItemsCount(r.Cart())
}

// SubtotalCents is the discounted subtotal of the view.
func (r *Reconciler) SubtotalCents() int64 {
	return pricing.SubtotalCents(r.Cart())
}

// Summary prices the view with the site settings applied.
func (r *Reconciler) Summary(settings *model.SiteSettings) pricing.Summary {
	return pricing.Summarize(r.Cart(), settings)
}
