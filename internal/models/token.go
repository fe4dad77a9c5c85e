package models

import (
	"time"

	"github.com/google/uuid"
)

// Token is a bearer credential scoped to exactly one
// (requester, target, requester_url, target_url) tuple.
// Immutable once minted; it stops working when ExpiresAt passes,
// there is no revocation.
type Token struct {
	ID           uuid.UUID
	Target       string
	Requester    string
	APIKey       string
	TargetURL    string
	RequesterURL string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}
