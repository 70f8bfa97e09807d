// Package apitest runs an in-memory storefront API for tests. It serves
// the auth, cart, catalogue, settings and checkout endpoints the client
// talks to, records every call and can inject failures.
package apitest

import (
	"fmt"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefreshCookie is the name of the refresh credential cookie.
const RefreshCookie = "refresh_token"

var signingKey = []byte("apitest-signing-key")

type account struct {
	user     model.User
	password string
}

type serverItem struct {
	ID        string
	ProductID string
	Quantity  int
}

type failure struct {
	status  int
	code    string
	message string
}

// Order is a checkout recorded by the fake API.
type Order struct {
	ID       string
	UserID   string
	Guest    bool
	Shipping model.ShippingInfo
	Items    []model.GuestEntry
}

// Server is a fake storefront API backed by maps.
type Server struct {
	*httptest.Server
	logger zerolog.Logger

	mu            sync.Mutex
	products      map[string]model.Product
	accounts      map[string]*account
	accessTokens  map[string]string
	refreshTokens map[string]string
	carts         map[string][]serverItem
	settings      model.SiteSettings
	orders        []Order
	calls         map[string]int
	failures      map[string][]failure
	holds         map[string]chan struct{}
	seq           int
}

// NewServer starts a fake API that is closed when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		logger:        zerolog.Nop(),
		products:      make(map[string]model.Product),
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		carts:         make(map[string][]serverItem),
		calls:         make(map[string]int),
		failures:      make(map[string][]failure),
		holds:         make(map[string]chan struct{}),
	}

	router := chi.NewRouter()
	router.Use(recovery(s.logger))
	router.Use(logging(s.logger))
	router.Use(s.record)

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Post("/logout", s.logout)
		r.Post("/refresh", s.refresh)
		r.With(s.bearerAuth).Get("/me", s.me)
	})

	router.Route("/api/cart", func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Get("/", s.getCart)
		r.Post("/items", s.addCartItem)
		r.Patch("/items/{itemId}", s.updateCartItem)
		r.Delete("/items/{itemId}", s.removeCartItem)
		r.Delete("/clear", s.clearCart)
	})

	router.Post("/api/products/by-ids", s.productsByIDs)
	router.Get("/api/settings", s.getSettings)
	router.With(s.bearerAuth).Post("/api/orders/checkout", s.checkout)
	router.Post("/api/orders/guest-checkout", s.guestCheckout)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)
	return s
}

// AddProduct makes p resolvable by the catalogue and cart endpoints.
func (s *Server) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// DeleteProduct removes a product from the catalogue.
func (s *Server) DeleteProduct(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// AddUser registers an account that can log in with password.
func (s *Server) AddUser(user model.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[user.Email] = &account{user: user, password: password}
}

// SetSettings replaces the site settings.
func (s *Server) SetSettings(settings model.SiteSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// IssueAccessToken mints a live access token for userID.
func (s *Server) IssueAccessToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueAccessTokenLocked(userID, time.Now().Add(15*time.Minute))
}

// IssueExpiredAccessToken mints a token whose exp claim is in the past.
// The server still accepts it until ExpireAccessTokens is called.
func (s *Server) IssueExpiredAccessToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueAccessTokenLocked(userID, time.Now().Add(-time.Minute))
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.accessTokens)
}

// RevokeRefreshTokens invalidates every refresh cookie issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refreshTokens)
}

// FailNext makes the next request matching method and path fail with
// status and message. Calls queue up.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, message: message})
}

// Hold parks requests matching method and path until the returned release
// func is called or the request is cancelled.
func (s *Server) Hold(method, path string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.holds[method+" "+path] = gate

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.holds, method+" "+path)
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many requests hit method and path.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// Orders returns the recorded checkouts.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orders)
}

// CartQuantities returns productId → quantity for the user's server cart.
func (s *Server) CartQuantities(userID string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, item := range s.carts[userID] {
		out[item.ProductID] = item.Quantity
	}
	return out
}

// SetCart replaces the user's server cart with productId → quantity entries
// in the given order.
func (s *Server) SetCart(userID string, entries ...model.GuestEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]serverItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, serverItem{ID: s.nextIDLocked("item"), ProductID: e.ProductID, Quantity: e.Quantity})
	}
	s.carts[userID] = items
}

func (s *Server) nextIDLocked(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) issueAccessTokenLocked(userID string, expiresAt time.Time) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("apitest: failed to sign token: %v", err))
	}
	s.accessTokens[token] = userID
	return token
}

func (s *Server) userByIDLocked(id string) (model.User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return model.User{}, false
}

func (s *Server) cartViewLocked(userID string) model.Cart {
	cart := model.Cart{ID: "cart-" + userID, Items: []model.CartItem{}}
	for _, item := range s.carts[userID] {
		product, ok := s.products[item.ProductID]
		if !ok {
			continue
		}
		cart.Items = append(cart.Items, model.CartItem{ID: item.ID, Quantity: item.Quantity, Product: product})
	}
	return cart
}

// Product returns an active, well-stocked product without a discount.
func Product(id string, priceCents int64) model.Product {
	return model.Product{
		ID:         id,
		Name:       "Product " + id,
		Slug:       "product-" + id,
		PriceCents: priceCents,
		Stock:      100,
		IsActive:   true,
		Images:     []model.ProductImage{},
	}
}
