// Package cartserver is an in-memory stand-in for the shopping cart service.
// It serves the three checkout workflow endpoints, optionally enforces
// load balancer style cookie affinity, and counts calls per step so tests can
// assert on what a load run actually sent.
package cartserver

import (
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultAffinityCookie mirrors the sticky session cookie of an AWS ALB.
const DefaultAffinityCookie = "AWSALB"

var cardPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{4}$`)

// Options tunes server behavior. The zero value authorizes every payment.
type Options struct {
	// DeclineRate is the probability in [0,1] that a checkout is declined.
	DeclineRate float64
	// Decline, when set, decides declines per customer instead of DeclineRate.
	Decline func(customerID string) bool
	// FailCreate returns a non-zero status to reject cart creation with.
	FailCreate func(customerID string) int
	// RequireAffinity rejects follow-up calls that do not present the cookie
	// issued at creation, as a cart on another node would be unknown.
	RequireAffinity bool
	AffinityCookie  string
	// Latency is added to every request.
	Latency time.Duration
}

// Counts reports calls received per endpoint.
type Counts struct {
	Creates   int64 `json:"creates"`
	AddItems  int64 `json:"add_items"`
	Checkouts int64 `json:"checkouts"`
	Declined  int64 `json:"declined"`
	Orders    int64 `json:"orders"`
}

type cartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cart struct {
	CartID     string     `json:"cart_id"`
	CustomerID string     `json:"customer_id"`
	Items      []cartItem `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	node       string
}

// Server holds carts in memory. It is safe for concurrent use.
type Server struct {
	opts Options
	mux  *http.ServeMux

	mu    sync.Mutex
	carts map[string]*cart

	creates, addItems, checkouts, declined, orders atomic.Int64
}

// New builds a server with routes registered.
func New(opts Options) *Server {
	if opts.AffinityCookie == "" {
		opts.AffinityCookie = DefaultAffinityCookie
	}
	s := &Server{
		opts:  opts,
		mux:   http.NewServeMux(),
		carts: make(map[string]*cart),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /shopping-carts", s.handleCreate)
	s.mux.HandleFunc("GET /shopping-carts/{id}", s.handleGet)
	s.mux.HandleFunc("POST /shopping-carts/{id}/items", s.handleAddItem)
	s.mux.HandleFunc("POST /shopping-carts/{id}/checkout", s.handleCheckout)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

// Counts returns a snapshot of per-endpoint call counters.
func (s *Server) Counts() Counts {
	return Counts{
		Creates:   s.creates.Load(),
		AddItems:  s.addItems.Load(),
		Checkouts: s.checkouts.Load(),
		Declined:  s.declined.Load(),
		Orders:    s.orders.Load(),
	}
}

// OpenCarts is the number of carts created but not checked out.
func (s *Server) OpenCarts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "carts_count": s.OpenCarts()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.creates.Add(1)

	var req struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.opts.FailCreate != nil {
		if status := s.opts.FailCreate(req.CustomerID); status != 0 {
			writeError(w, status, "cart creation rejected")
			return
		}
	}

	c := &cart{
		CartID:     uuid.NewString(),
		CustomerID: req.CustomerID,
		Items:      []cartItem{},
		CreatedAt:  time.Now(),
		node:       uuid.NewString(),
	}
	s.mu.Lock()
	s.carts[c.CartID] = c
	s.mu.Unlock()

	if s.opts.RequireAffinity {
		http.SetCookie(w, &http.Cookie{Name: s.opts.AffinityCookie, Value: c.node, Path: "/"})
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	s.addItems.Add(1)

	var req cartItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" || req.Quantity < 1 || req.Quantity > 10000 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}

	s.mu.Lock()
	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == req.ProductID {
			c.Items[i].Quantity += req.Quantity
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, req)
	}
	body, err := json.Marshal(c)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	s.checkouts.Add(1)

	var req struct {
		CreditCardNumber string `json:"credit_card_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CreditCardNumber == "" {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}

	s.mu.Lock()
	empty := len(c.Items) == 0
	customer := c.CustomerID
	s.mu.Unlock()
	if empty {
		writeError(w, http.StatusBadRequest, "cannot checkout empty cart")
		return
	}
	if !cardPattern.MatchString(req.CreditCardNumber) {
		writeError(w, http.StatusInternalServerError, "payment authorization failed")
		return
	}
	if s.declines(customer) {
		s.declined.Add(1)
		writeError(w, http.StatusPaymentRequired, "payment declined")
		return
	}

	s.mu.Lock()
	delete(s.carts, c.CartID)
	s.mu.Unlock()
	s.orders.Add(1)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":              "checkout successful",
		"order_id":             uuid.NewString(),
		"authorization_status": "Authorized",
	})
}

func (s *Server) declines(customerID string) bool {
	if s.opts.Decline != nil {
		return s.opts.Decline(customerID)
	}
	return s.opts.DeclineRate > 0 && rand.Float64() < s.opts.DeclineRate
}

// lookup resolves the cart named in the path. With affinity required, a
// request without the matching cookie cannot see the cart.
func (s *Server) lookup(r *http.Request) (*cart, bool) {
	s.mu.Lock()
	c, ok := s.carts[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if s.opts.RequireAffinity {
		cookie, err := r.Cookie(s.opts.AffinityCookie)
		if err != nil || cookie.Value != c.node {
			return nil, false
		}
	}
	return c, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
