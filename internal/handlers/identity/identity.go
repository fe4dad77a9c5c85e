// Package identity reads the headers a service uses to introduce itself.
package identity

import "net/http"

const (
	HeaderProject = "X-Service-Project"
	HeaderURL     = "X-Service-Url"
	HeaderBaseKey = "X-Service-Base-Key"
)

// Identity is the caller's claim about itself taken from request headers.
// Empty fields mean the header was absent, verification is up to the caller.
type Identity struct {
	Project string
	URL     string
	BaseKey string
}

func FromRequest(r *http.Request) Identity {
	return Identity{
		Project: r.Header.Get(HeaderProject),
		URL:     r.Header.Get(HeaderURL),
		BaseKey: r.Header.Get(HeaderBaseKey),
	}
}

// SetHeaders writes the identity onto an outgoing request.
func (id Identity) SetHeaders(h http.Header) {
	h.Set(HeaderProject, id.Project)
	h.Set(HeaderURL, id.URL)
	h.Set(HeaderBaseKey, id.BaseKey)
}
