package apitest

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type authPayload struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"accessToken"`
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, userID string) {
	value := uuid.NewString()
	s.refreshTokens[value] = userID
	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: value, Path: "/", HttpOnly: true})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decode(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[creds.Email]
	if !ok || acc.password != creds.Password {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", s.logger)
		return
	}

	s.setRefreshCookie(w, acc.user.ID)
	token := s.issueAccessTokenLocked(acc.user.ID, time.Now().Add(15*time.Minute))
	writeJSON(w, http.StatusOK, authPayload{User: acc.user, AccessToken: token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if err := decode(r, &reg); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[reg.Email]; exists {
		writeError(w, http.StatusConflict, "EMAIL_TAKEN", "Email already in use", s.logger)
		return
	}

	user := model.User{ID: s.nextIDLocked("user"), Name: reg.Name, Email: reg.Email, Role: model.RoleCustomer}
	s.accounts[reg.Email] = &account{user: user, password: reg.Password}

	s.setRefreshCookie(w, user.ID)
	token := s.issueAccessTokenLocked(user.ID, time.Now().Add(15*time.Minute))
	writeJSON(w, http.StatusCreated, authPayload{User: user, AccessToken: token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if c, err := r.Cookie(RefreshCookie); err == nil {
		delete(s.refreshTokens, c.Value)
	}
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: RefreshCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing refresh token", s.logger)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.refreshTokens[c.Value]
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid refresh token", s.logger)
		return
	}

	token := s.issueAccessTokenLocked(userID, time.Now().Add(15*time.Minute))
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	user, ok := s.userByIDLocked(userIDFrom(r.Context()))
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", s.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]model.User{"user": user})
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cart := s.cartViewLocked(userIDFrom(r.Context()))
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]model.Cart{"cart": cart})
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, model.ErrInvalidQuantity.Code, model.ErrInvalidQuantity.Message, s.logger)
		return
	}

	userID := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[req.ProductID]
	if !ok || !product.IsActive {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Product not found", s.logger)
		return
	}

	items := s.carts[userID]
	idx := slices.IndexFunc(items, func(it serverItem) bool { return it.ProductID == req.ProductID })
	quantity := req.Quantity
	if idx >= 0 {
		quantity += items[idx].Quantity
	}
	if quantity > product.Stock {
		writeError(w, http.StatusBadRequest, "OUT_OF_STOCK", "Not enough stock", s.logger)
		return
	}

	if idx >= 0 {
		items[idx].Quantity = quantity
	} else {
		items = append(items, serverItem{ID: s.nextIDLocked("item"), ProductID: req.ProductID, Quantity: quantity})
	}
	s.carts[userID] = items

	writeJSON(w, http.StatusCreated, map[string]model.Cart{"cart": s.cartViewLocked(userID)})
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, model.ErrInvalidQuantity.Code, model.ErrInvalidQuantity.Message, s.logger)
		return
	}

	userID := userIDFrom(r.Context())
	itemID := chi.URLParam(r, "itemId")

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	idx := slices.IndexFunc(items, func(it serverItem) bool { return it.ID == itemID })
	if idx < 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Cart item not found", s.logger)
		return
	}
	items[idx].Quantity = req.Quantity

	writeJSON(w, http.StatusOK, map[string]model.Cart{"cart": s.cartViewLocked(userID)})
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	itemID := chi.URLParam(r, "itemId")

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	idx := slices.IndexFunc(items, func(it serverItem) bool { return it.ID == itemID })
	if idx < 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Cart item not found", s.logger)
		return
	}
	s.carts[userID] = slices.Delete(items, idx, idx+1)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, userIDFrom(r.Context()))
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) productsByIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Returned in reverse request order; clients must join by id.
	items := make([]model.Product, 0, len(req.IDs))
	for i := len(req.IDs) - 1; i >= 0; i-- {
		if p, ok := s.products[req.IDs[i]]; ok {
			items = append(items, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Product{"items": items})
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	settings := s.settings
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]model.SiteSettings{"settings": settings})
}

func validShipping(info model.ShippingInfo) bool {
	for _, v := range []string{info.FullName, info.Phone, info.AddressLine1, info.City} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}
	if !validShipping(req.Shipping) {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "Shipping details are incomplete", s.logger)
		return
	}

	userID := userIDFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[userID]
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeEmptyCart, "Cart is empty", s.logger)
		return
	}

	order := Order{ID: s.nextIDLocked("order"), UserID: userID, Shipping: req.Shipping}
	for _, item := range items {
		order.Items = append(order.Items, model.GuestEntry{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	s.orders = append(s.orders, order)
	delete(s.carts, userID)

	writeJSON(w, http.StatusCreated, model.OrderResponse{Order: model.Order{ID: order.ID}})
}

func (s *Server) guestCheckout(w http.ResponseWriter, r *http.Request) {
	var req model.GuestCheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", s.logger)
		return
	}
	if !validShipping(req.Shipping) {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "Shipping details are incomplete", s.logger)
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeEmptyCart, "Cart is empty", s.logger)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range req.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			writeError(w, http.StatusBadRequest, "NOT_FOUND", "Product not found", s.logger)
			return
		}
	}

	order := Order{ID: s.nextIDLocked("order"), Guest: true, Shipping: req.Shipping, Items: req.Items}
	s.orders = append(s.orders, order)

	writeJSON(w, http.StatusCreated, model.OrderResponse{Order: model.Order{ID: order.ID}})
}
