// Package refreshtokens declares the storage contract for server-side
// refresh tokens and its PostgreSQL implementation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/echo/internal/server/models"
)

// Repository stores refresh tokens.
type Repository interface {
	// Create inserts token. A duplicate token value is a hard error.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindActive returns the non-revoked row for token together with its
	// owner, or common.ErrorNotFound. Expiry is left to the caller.
	FindActive(ctx context.Context, token string) (*models.RefreshToken, error)

	// Revoke marks token revoked whatever its state and reports whether a
	// row with that value exists.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeActive flips revoked from false to true and reports whether this
	// call did it. Concurrent callers on the same token see exactly one true.
	RevokeActive(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes rows that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
