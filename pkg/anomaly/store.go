package anomaly

import (
	"context"
	"errors"
)

// ErrProfileNotFound is returned by read-only lookups for users the engine
// has never seen. Callers can distinguish it from a zero risk score.
var ErrProfileNotFound = errors.New("anomaly: profile not found")

// ProfileStore persists per-user profiles. Implementations stay dumb get/put:
// per-user atomicity is provided by the engine's keyed locks, so a store never
// needs compare-and-swap semantics of its own.
//
// Get returns (nil, nil) for an unknown user.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Put(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, userID string) error
	Keys(ctx context.Context) ([]string, error)
}
