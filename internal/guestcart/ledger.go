// Package guestcart persists the anonymous shopper's cart as a list of
// product id and quantity entries inside the client key-value store.
package guestcart

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"storefront/internal/kvstore"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// Quantity bounds for a single guest cart line.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// Data is the persisted ledger document: {"items":[{"productId","quantity"}]}.
type Data struct {
	Items []model.GuestEntry `json:"items"`
}

// ProductIDs returns the product ids in ledger order.
func (d Data) ProductIDs() []string {
	ids := make([]string, len(d.Items))
	for i, item := range d.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// Ledger reads and mutates the guest cart. Mutations are read-modify-write
// sequences and are serialised per Ledger.
type Ledger struct {
	mu     sync.Mutex
	store  kvstore.Store
	logger zerolog.Logger
}

// NewLedger creates a ledger over store.
func NewLedger(store kvstore.Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger.With().Str("component", "guest-ledger").Logger(),
	}
}

// Read loads the ledger. Absent, unreadable or malformed data yields an
// empty ledger; individual bad entries are dropped.
func (l *Ledger) Read(ctx context.Context) Data {
	raw, ok, err := l.store.Get(ctx, kvstore.GuestCartKey)
	if err != nil {
		l.logger.Warn().Err(err).Msg("failed to read guest cart, treating as empty")
		return Data{Items: []model.GuestEntry{}}
	}
	if !ok || raw == "" {
		return Data{Items: []model.GuestEntry{}}
	}

	data, dropped := parse(raw)
	if dropped > 0 {
		l.logger.Warn().Int("dropped", dropped).Msg("ignored malformed guest cart entries")
	}
	return data
}

// Write stores the ledger with a single store call.
func (l *Ledger) Write(ctx context.Context, data Data) error {
	if data.Items == nil {
		data.Items = []model.GuestEntry{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode guest cart: %w", err)
	}
	if err := l.store.Set(ctx, kvstore.GuestCartKey, string(payload)); err != nil {
		return fmt.Errorf("failed to write guest cart: %w", err)
	}
	return nil
}

// Clear removes the stored ledger entirely.
func (l *Ledger) Clear(ctx context.Context) error {
	if err := l.store.Delete(ctx, kvstore.GuestCartKey); err != nil {
		return fmt.Errorf("failed to clear guest cart: %w", err)
	}
	return nil
}

// Exists reports whether a guest cart is stored at all.
func (l *Ledger) Exists(ctx context.Context) (bool, error) {
	_, ok, err := l.store.Get(ctx, kvstore.GuestCartKey)
	if err != nil {
		return false, fmt.Errorf("failed to read guest cart: %w", err)
	}
	return ok, nil
}

// Upsert adds delta to the entry for productID, or inserts a new entry at
// the front of the list. Quantities are clamped to [MinQuantity, MaxQuantity].
func (l *Ledger) Upsert(ctx context.Context, productID string, delta int) error {
	if productID == "" {
		return model.ErrMissingProduct
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data := l.Read(ctx)
	if idx := data.index(productID); idx >= 0 {
		data.Items[idx].Quantity = Clamp(data.Items[idx].Quantity + delta)
	} else {
		entry := model.GuestEntry{ProductID: productID, Quantity: Clamp(delta)}
		data.Items = append([]model.GuestEntry{entry}, data.Items...)
	}

	l.logger.Debug().Str("product_id", productID).Int("delta", delta).Msg("guest cart upsert")
	return l.Write(ctx, data)
}

// SetQuantity replaces the quantity of an existing entry. Unknown product
// ids are ignored.
func (l *Ledger) SetQuantity(ctx context.Context, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := l.Read(ctx)
	idx := data.index(productID)
	if idx < 0 {
		return nil
	}
	data.Items[idx].Quantity = Clamp(quantity)
	return l.Write(ctx, data)
}

// Remove deletes the entry for productID. Removing the last entry clears
// the stored key instead of persisting an empty list.
func (l *Ledger) Remove(ctx context.Context, productID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data := l.Read(ctx)
	kept := make([]model.GuestEntry, 0, len(data.Items))
	for _, item := range data.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}

	if len(kept) == 0 {
		return l.Clear(ctx)
	}
	return l.Write(ctx, Data{Items: kept})
}

func (d Data) index(productID string) int {
	for i, item := range d.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clamp bounds a quantity to [MinQuantity, MaxQuantity].
func Clamp(quantity int) int {
	return max(MinQuantity, min(MaxQuantity, quantity))
}

type rawEntry struct {
	ProductID json.RawMessage `json:"productId"`
	Quantity  json.RawMessage `json:"quantity"`
}

// parse decodes a stored ledger and reports how many entries were dropped.
func parse(raw string) (Data, int) {
	empty := Data{Items: []model.GuestEntry{}}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc == nil {
		return empty, 0
	}

	var items []json.RawMessage
	if err := json.Unmarshal(doc["items"], &items); err != nil || items == nil {
		return empty, 0
	}

	data := Data{Items: make([]model.GuestEntry, 0, len(items))}
	dropped := 0
	for _, item := range items {
		entry, ok := parseEntry(item)
		if !ok {
			dropped++
			continue
		}
		data.Items = append(data.Items, entry)
	}
	return data, dropped
}

func parseEntry(raw json.RawMessage) (model.GuestEntry, bool) {
	var e rawEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return model.GuestEntry{}, false
	}

	var productID string
	if err := json.Unmarshal(e.ProductID, &productID); err != nil || productID == "" {
		return model.GuestEntry{}, false
	}

	q, ok := toNumber(e.Quantity)
	if !ok || math.IsNaN(q) || math.IsInf(q, 0) {
		return model.GuestEntry{}, false
	}

	q = math.Max(MinQuantity, math.Min(MaxQuantity, math.Trunc(q)))
	return model.GuestEntry{ProductID: productID, Quantity: int(q)}, true
}

// toNumber converts a JSON scalar to a number the way a lenient numeric
// coercion would: numbers as-is, numeric strings parsed, booleans as 1/0
// and null as 0. Missing values, objects and arrays are rejected.
func toNumber(raw json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "":
		return 0, false
	case s == "null", s == "false":
		return 0, true
	case s == "true":
		return 1, true
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, false
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(str, 64)
		return f, err == nil
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}
