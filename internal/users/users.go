// Package users keeps the local set of collector accounts: credit balances,
// spending totals and account status.
package users

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// User is one collector account.
type User struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"walletAddress"`
	Credits        int       `json:"credits"`
	TotalSpent     int       `json:"totalSpent"`
	EventsCaptured int       `json:"eventsCaptured"`
	JoinedAt       time.Time `json:"joinedAt"`
	Status         string    `json:"status"`
	LastActivity   time.Time `json:"lastActivity"`
}

// Seed returns the accounts a development deployment starts with.
func Seed() []User {
	return []User{
		{
			ID: "user_001", WalletAddress: "tz1ABC...DEF",
			Credits: 25, TotalSpent: 150, EventsCaptured: 12,
			JoinedAt:     time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC),
			Status:       StatusActive,
			LastActivity: time.Date(2025, time.June, 21, 9, 30, 0, 0, time.UTC),
		},
		{
			ID: "user_002", WalletAddress: "tz1XYZ...123",
			Credits: 8, TotalSpent: 320, EventsCaptured: 28,
			JoinedAt:     time.Date(2025, time.June, 10, 14, 0, 0, 0, time.UTC),
			Status:       StatusActive,
			LastActivity: time.Date(2025, time.June, 21, 8, 15, 0, 0, time.UTC),
		},
		{
			ID: "user_003", WalletAddress: "tz1GHI...456",
			Credits: 0, TotalSpent: 75, EventsCaptured: 5,
			JoinedAt:     time.Date(2025, time.June, 18, 16, 0, 0, 0, time.UTC),
			Status:       StatusInactive,
			LastActivity: time.Date(2025, time.June, 20, 12, 0, 0, 0, time.UTC),
		},
	}
}

// Store is the concurrency-safe user set.
type Store struct {
	mu    sync.Mutex
	clock clockwork.Clock
	users map[string]*User
}

// NewStore creates a Store holding copies of the given users.
func NewStore(clock clockwork.Clock, initial []User) *Store {
	s := &Store{clock: clock, users: make(map[string]*User, len(initial))}
	for _, u := range initial {
		s.users[u.ID] = &u
	}
	return s
}

// Get returns a copy of one user.
func (s *Store) Get(id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, notFound(id)
	}
	return *u, nil
}

// AdjustCredits adds amount (which may be negative) to the user's balance.
// A change that would leave the balance negative fails with
// domain.ErrInsufficientCredits.
func (s *Store) AdjustCredits(id string, amount int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, notFound(id)
	}
	if u.Credits+amount < 0 {
		return *u, domain.ErrInsufficientCredits
	}
	u.Credits += amount
	u.LastActivity = s.clock.Now().UTC()
	return *u, nil
}

// SetStatus changes the account status and returns the previous one.
func (s *Store) SetStatus(id, status string) (previous string, u User, err error) {
	switch status {
	case StatusActive, StatusInactive, StatusSuspended:
	default:
		return "", User{}, &domain.ValidationError{Field: "status", Reason: "must be active, inactive or suspended"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[id]
	if !ok {
		return "", User{}, notFound(id)
	}
	previous = stored.Status
	stored.Status = status
	return previous, *stored, nil
}

// Charge debits a capture's price and records it against the user. Only
// active users may capture.
func (s *Store) Charge(id string, price int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, notFound(id)
	}
	if u.Status != StatusActive {
		return *u, &domain.ValidationError{Field: "userId", Reason: "user " + id + " is " + u.Status}
	}
	if u.Credits < price {
		return *u, domain.ErrInsufficientCredits
	}
	u.Credits -= price
	u.TotalSpent += price
	u.EventsCaptured++
	u.LastActivity = s.clock.Now().UTC()
	return *u, nil
}

// Filter narrows List.
type Filter struct {
	Status string
	SortBy string // joinedAt (default), credits, totalSpent, eventsCaptured, lastActivity, id
	Order  string // desc (default) or asc
	Limit  int    // <= 0 means 50
}

// ListResult is a filtered, sorted page of users.
type ListResult struct {
	Users    []User `json:"users"`
	Total    int    `json:"total"`
	Filtered int    `json:"filtered"`
}

const defaultListLimit = 50

var sortKeys = map[string]func(a, b User) int{
	"joinedAt":       func(a, b User) int { return a.JoinedAt.Compare(b.JoinedAt) },
	"lastActivity":   func(a, b User) int { return a.LastActivity.Compare(b.LastActivity) },
	"credits":        func(a, b User) int { return cmp.Compare(a.Credits, b.Credits) },
	"totalSpent":     func(a, b User) int { return cmp.Compare(a.TotalSpent, b.TotalSpent) },
	"eventsCaptured": func(a, b User) int { return cmp.Compare(a.EventsCaptured, b.EventsCaptured) },
	"id":             func(a, b User) int { return cmp.Compare(a.ID, b.ID) },
}

// List returns users matching f.
func (s *Store) List(f Filter) (ListResult, error) {
	if f.SortBy == "" {
		f.SortBy = "joinedAt"
	}
	less, ok := sortKeys[f.SortBy]
	if !ok {
		return ListResult{}, &domain.ValidationError{Field: "sortBy", Reason: "unknown field " + f.SortBy}
	}
	if f.Order != "" && f.Order != "asc" && f.Order != "desc" {
		return ListResult{}, &domain.ValidationError{Field: "order", Reason: "must be asc or desc"}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.Lock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if f.Status == "" || u.Status == f.Status {
			out = append(out, *u)
		}
	}
	total := len(s.users)
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b User) int {
		c := less(a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if f.Order != "asc" {
			c = -c
		}
		return c
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return ListResult{Users: out, Total: total, Filtered: len(out)}, nil
}

// Summary aggregates the user set for the dashboard.
type Summary struct {
	TotalUsers        int     `json:"totalUsers"`
	ActiveUsers       int     `json:"activeUsers"`
	TotalCredits      int     `json:"totalCredits"`
	TotalSpent        int     `json:"totalSpent"`
	AvgCreditsPerUser float64 `json:"avgCreditsPerUser"`
}

// Summary computes totals over every user. Averages are 0 for an empty set.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum Summary
	for _, u := range s.users {
		sum.TotalUsers++
		if u.Status == StatusActive {
			sum.ActiveUsers++
		}
		sum.TotalCredits += u.Credits
		sum.TotalSpent += u.TotalSpent
	}
	if sum.TotalUsers > 0 {
		avg := float64(sum.TotalCredits) / float64(sum.TotalUsers)
		sum.AvgCreditsPerUser = math.Round(avg*10) / 10
	}
	return sum
}

func notFound(id string) error {
	return &domain.NotFoundError{Kind: "user", ID: id}
}
