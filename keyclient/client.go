// Package keyclient talks to the key service on behalf of a backend service.
//
// A service registers itself once, then asks for api keys to call other
// services and validates the keys other services present to it:
//
//	client, err := keyclient.New(keyclient.Config{
//	    BrokerURL:  "https://key.internal",
//	    Project:    "billing",
//	    ServiceURL: "https://billing.internal",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Register(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	apiKey, err := client.Token(ctx, "ledger", "https://ledger.internal")
//	req.Header.Set("X-Api-Key", apiKey)
//
// Keys are cached per target and renewed shortly before they expire.
package keyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Artanty/key/internal/handlers/identity"
)

var (
	// ErrNotRegistered is returned when the client is used before Register
	ErrNotRegistered = errors.New("keyclient: service is not registered")

	// ErrKeyRejected is returned when the broker refuses the presented api key
	ErrKeyRejected = errors.New("keyclient: api key rejected")
)

// Client keeps the service's base key and a per target cache of issued
// api keys. Safe for concurrent use.
type Client struct {
	config     Config
	httpClient *http.Client

	mu         sync.RWMutex
	baseKey    string
	tokenCache map[string]cacheEntry // key = target project + target url
}

type cacheEntry struct {
	apiKey    string
	expiresAt time.Time
}

func New(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.BrokerURL = strings.TrimSuffix(config.BrokerURL, "/")

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		tokenCache: make(map[string]cacheEntry),
	}, nil
}

// Register introduces the service to the broker and stores the base key.
// Calling it again rotates the key, previously issued api keys stay live
// until they expire on their own.
func (c *Client) Register(ctx context.Context) error {
	payload := struct {
		Project string `json:"project"`
		URL     string `json:"url"`
	}{
		Project: c.config.Project,
		URL:     c.config.ServiceURL,
	}

	status, raw, err := c.postJSON(ctx, "/register", nil, payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("keyclient: register failed (HTTP %d): %s", status, raw)
	}

	var data struct {
		BaseKey string `json:"baseKey"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("keyclient: failed to decode register response: %w", err)
	}

	c.mu.Lock()
	c.baseKey = data.BaseKey
	c.mu.Unlock()

	return nil
}

// Token returns an api key for calling targetProject at targetURL.
// A cached key is reused until it is close to expiry. Concurrent misses
// may each hit the broker, it hands out the same live key to all of them.
func (c *Client) Token(ctx context.Context, targetProject string, targetURL string) (string, error) {
	cacheKey := targetProject + "\x00" + targetURL

	c.mu.RLock()
	id := c.identityLocked()
	entry, cached := c.tokenCache[cacheKey]
	c.mu.RUnlock()

	if id.BaseKey == "" {
		return "", ErrNotRegistered
	}
	if cached && time.Now().Before(entry.expiresAt.Add(-c.config.renewalBuffer())) {
		return entry.apiKey, nil
	}

	payload := struct {
		TargetProject string `json:"targetProject"`
		TargetURL     string `json:"targetUrl"`
	}{
		TargetProject: targetProject,
		TargetURL:     targetURL,
	}

	status, raw, err := c.postJSON(ctx, "/issue", &id, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("keyclient: issue failed (HTTP %d): %s", status, raw)
	}

	var data struct {
		APIKey    string    `json:"apiKey"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("keyclient: failed to decode issue response: %w", err)
	}

	c.mu.Lock()
	c.tokenCache[cacheKey] = cacheEntry{apiKey: data.APIKey, expiresAt: data.ExpiresAt}
	c.mu.Unlock()

	return data.APIKey, nil
}

// Validate checks an api key some requester presented to this service.
// Returns the requester's project name the broker vouches for.
func (c *Client) Validate(ctx context.Context, requesterProject string, requesterURL string, apiKey string) (string, error) {
	c.mu.RLock()
	id := c.identityLocked()
	c.mu.RUnlock()

	if id.BaseKey == "" {
		return "", ErrNotRegistered
	}

	payload := struct {
		RequesterProject string `json:"requesterProject"`
		RequesterAPIKey  string `json:"requesterApiKey"`
		RequesterURL     string `json:"requesterUrl"`
	}{
		RequesterProject: requesterProject,
		RequesterAPIKey:  apiKey,
		RequesterURL:     requesterURL,
	}

	status, raw, err := c.postJSON(ctx, "/validate", &id, payload)
	if err != nil {
		return "", err
	}

	var data struct {
		Valid     bool   `json:"valid"`
		Requester string `json:"requester"`
		Error     string `json:"error"`
	}
	if unmarshalErr := json.Unmarshal(raw, &data); unmarshalErr != nil {
		return "", fmt.Errorf("keyclient: failed to decode validate response (HTTP %d): %w", status, unmarshalErr)
	}

	switch {
	case status == http.StatusOK && data.Valid:
		return data.Requester, nil
	case status == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrKeyRejected, data.Error)
	default:
		return "", fmt.Errorf("keyclient: validate failed (HTTP %d): %s", status, raw)
	}
}

// BaseKey returns the key received on the last successful Register,
// empty before that.
func (c *Client) BaseKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseKey
}

// InvalidateTokens clears all cached api keys.
// Call it when a target starts rejecting keys that should still be live.
func (c *Client) InvalidateTokens() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenCache = make(map[string]cacheEntry)
}

// TokenExpiry returns the expiry of the cached key for the target,
// zero time when nothing is cached.
func (c *Client) TokenExpiry(targetProject string, targetURL string) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.tokenCache[targetProject+"\x00"+targetURL]; ok {
		return entry.expiresAt
	}
	return time.Time{}
}

// identityLocked builds the identity headers value, callers must hold mu
func (c *Client) identityLocked() identity.Identity {
	return identity.Identity{
		Project: c.config.Project,
		URL:     c.config.ServiceURL,
		BaseKey: c.baseKey,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, id *identity.Identity, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("keyclient: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BrokerURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("keyclient: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id != nil {
		id.SetHeaders(req.Header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("keyclient: request to broker failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("keyclient: failed to read broker response: %w", err)
	}

	return resp.StatusCode, raw, nil
}
