// Package fakeapi is an in-memory pack tracking API used as a local target
// and in integration tests. It applies the service's status rules and can
// inject latency and failures.
package fakeapi

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

var (
	errNotFound         = errors.New("pack not found")
	errInvalidStatus    = errors.New("invalid status transition")
	errCannotCancel     = errors.New("pack cannot be canceled")
	errFinalStatus      = errors.New("pack status is final")
	errInjectedFailure  = errors.New("injected failure")
	errValidationFailed = errors.New("validation failed")
)

// Pack mirrors the JSON the service returns.
type Pack struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Recipient   string     `json:"recipient"`
	Sender      string     `json:"sender"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
}

// Event is a stored delivery event.
type Event struct {
	PackID      string    `json:"pack_id"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Date        time.Time `json:"date"`
}

// Options configures fault injection.
type Options struct {
	// Latency is added to every request before it is handled.
	Latency time.Duration
	// FailureRate is the probability in [0,1] of answering 500.
	FailureRate float64
	// Seed drives the failure injection.
	Seed uint64
}

// Server keeps packs and events in memory.
type Server struct {
	opts Options

	mu     sync.Mutex
	packs  map[string]*Pack
	events map[string][]Event
	rnd    *rand.Rand

	requests atomic.Int64
	now      func() time.Time
}

func New(opts Options) *Server {
	return &Server{
		opts:   opts,
		packs:  make(map[string]*Pack),
		events: make(map[string][]Event),
		rnd:    rand.New(rand.NewPCG(opts.Seed, opts.Seed+1)),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Handler routes the pack API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /packs", s.createPack)
	mux.HandleFunc("PATCH /packs/{id}", s.updateStatus)
	mux.HandleFunc("POST /packs/{id}/cancel", s.cancelPack)
	mux.HandleFunc("GET /packs/{id}", s.getPack)
	mux.HandleFunc("POST /pack_events", s.createEvent)
	return s.middleware(mux)
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		if s.opts.Latency > 0 {
			select {
			case <-time.After(s.opts.Latency):
			case <-r.Context().Done():
				return
			}
		}
		if s.opts.FailureRate > 0 && s.roll() < s.opts.FailureRate {
			writeError(w, http.StatusInternalServerError, errInjectedFailure)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Requests returns how many requests reached the server.
func (s *Server) Requests() int64 { return s.requests.Load() }

// Pack returns a copy of the stored pack.
func (s *Server) Pack(id string) (Pack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return Pack{}, false
	}
	return *p, true
}

// Count returns the number of packs per status.
func (s *Server) Count() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Status]int)
	for _, p := range s.packs {
		out[p.Status]++
	}
	return out
}

// Events returns the events recorded for a pack.
func (s *Server) Events(id string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events[id]...)
}

type createPackRequest struct {
	Description           string `json:"description"`
	Recipient             string `json:"recipient"`
	Sender                string `json:"sender"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
}

func (s *Server) createPack(w http.ResponseWriter, r *http.Request) {
	var req createPackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Description == "" || req.Recipient == "" || req.Sender == "" {
		writeError(w, http.StatusBadRequest, errValidationFailed)
		return
	}
	if _, err := time.Parse(time.DateOnly, req.EstimatedDeliveryDate); err != nil {
		writeError(w, http.StatusBadRequest, errValidationFailed)
		return
	}

	now := s.now()
	p := &Pack{
		ID:          uuid.NewString(),
		Description: req.Description,
		Status:      StatusCreated,
		Recipient:   req.Recipient,
		Sender:      req.Sender,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.packs[p.ID] = p
	out := *p
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getPack(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Pack(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch req.Status {
	case StatusCreated, StatusInTransit, StatusDelivered:
	default:
		writeError(w, http.StatusBadRequest, errValidationFailed)
		return
	}

	s.mu.Lock()
	p, ok := s.packs[r.PathValue("id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	if err := transition(p, req.Status, s.now()); err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := *p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cancelPack(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, ok := s.packs[r.PathValue("id")]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	if p.Status != StatusCreated {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, errCannotCancel)
		return
	}
	now := s.now()
	p.Status = StatusCanceled
	p.CanceledAt = &now
	p.UpdatedAt = now
	out := *p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// transition applies the pack status rules. DELIVERED and CANCELED are final.
func transition(p *Pack, to Status, now time.Time) error {
	switch p.Status {
	case StatusDelivered, StatusCanceled:
		return errFinalStatus
	case StatusCreated:
		if to != StatusInTransit {
			return errInvalidStatus
		}
	case StatusInTransit:
		if to != StatusDelivered && to != StatusCanceled {
			return errInvalidStatus
		}
	}
	p.Status = to
	p.UpdatedAt = now
	switch to {
	case StatusDelivered:
		p.DeliveredAt = &now
	case StatusCanceled:
		p.CanceledAt = &now
	}
	return nil
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ev.PackID == "" || ev.Description == "" || ev.Location == "" || ev.Date.IsZero() {
		writeError(w, http.StatusBadRequest, errValidationFailed)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[ev.PackID]; !ok {
		writeError(w, http.StatusNotFound, errNotFound)
		return
	}
	s.events[ev.PackID] = append(s.events[ev.PackID], ev)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
