package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is one registered (project, url) pair with its current rotating
// secret. Re-registering the same pair overwrites BaseKey and UpdatedAt;
// registering a known project under a new url creates a second record.
type Service struct {
	ID        uuid.UUID
	Project   string
	URL       string
	BaseKey   string
	UpdatedAt time.Time
}
