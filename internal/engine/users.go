package engine

import (
	"context"

	"github.com/couchcryptid/weathernft-service/internal/domain"
	"github.com/couchcryptid/weathernft-service/internal/users"
)

// ListUsers returns a filtered, sorted page of users.
func (e *Engine) ListUsers(f users.Filter) (users.ListResult, error) {
	return e.users.List(f)
}

// GetUser returns one user.
func (e *Engine) GetUser(id string) (users.User, error) {
	return e.users.Get(id)
}

// AdjustCredits adds (amount > 0) or removes (amount < 0) credits.
func (e *Engine) AdjustCredits(_ context.Context, id string, amount int, reason string) (users.User, error) {
	data := map[string]any{"userId": id, "amount": amount, "reason": reason}

	var (
		u   users.User
		err error
	)
	if amount == 0 {
		err = &domain.ValidationError{Field: "amount", Reason: "must not be zero"}
	} else {
		u, err = e.users.AdjustCredits(id, amount)
	}
	if err != nil {
		e.recordFailure("Credit adjustment rejected", err, data)
		return users.User{}, err
	}

	data["newBalance"] = u.Credits
	msg := "Credits added"
	if amount < 0 {
		msg = "Credits removed"
	}
	e.record(domain.LevelInfo, msg, data)
	return u, nil
}

// SetUserStatus moves a user to active, inactive or suspended. Status
// changes are logged at warning level.
func (e *Engine) SetUserStatus(_ context.Context, id, status, reason string) (users.User, error) {
	data := map[string]any{"userId": id, "newStatus": status, "reason": reason}

	prev, u, err := e.users.SetStatus(id, status)
	if err != nil {
		e.recordFailure("User status change rejected", err, data)
		return users.User{}, err
	}

	data["oldStatus"] = prev
	e.record(domain.LevelWarning, "User status changed", data)
	return u, nil
}
