package keyclient

import (
	"errors"
	"net/http"
	"time"
)

const defaultRenewalBuffer = 5 * time.Minute

// Config for the broker client
type Config struct {
	// BrokerURL is the base url of the key service (e.g. "https://key.internal")
	BrokerURL string

	// Project is the name this service registers under
	Project string

	// ServiceURL is the url this service is reachable on.
	// The broker binds the base key and every issued api key to it.
	ServiceURL string

	// RenewalBuffer is how long before expiry a cached api key is renewed.
	// Zero means the default of five minutes.
	RenewalBuffer time.Duration

	// HTTPClient overrides the default client, mostly for tests
	HTTPClient *http.Client
}

// Validate checks that all required config fields are set
func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("keyclient: BrokerURL is required")
	}
	if c.Project == "" {
		return errors.New("keyclient: Project is required")
	}
	if c.ServiceURL == "" {
		return errors.New("keyclient: ServiceURL is required")
	}
	return nil
}

func (c *Config) renewalBuffer() time.Duration {
	if c.RenewalBuffer == 0 {
		return defaultRenewalBuffer
	}
	return c.RenewalBuffer
}
