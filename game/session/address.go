package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

var ErrInvalidAddress = errors.New("invalid address")

// Address is the navigable location that names the session
type Address interface {
	// Path returns the current path, e.g. "/ABCDE" or "/"
	Path() string

	// Replace swaps the path in place without reconnecting
	Replace(path string) error
}

// URLAddress is an Address over a share URL
type URLAddress struct {
	u        *url.URL
	onChange func(link string)
	mu       sync.RWMutex
}

// ParseURLAddress parses raw as an absolute http(s) URL
func ParseURLAddress(raw string) (*URLAddress, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidAddress, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}
	return &URLAddress{u: u}, nil
}

// OnChange registers a callback invoked with the full link after Replace
func (a *URLAddress) OnChange(fn func(link string)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Path implements Address
func (a *URLAddress) Path() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.u.Path
}

// Replace implements Address
func (a *URLAddress) Replace(path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	a.mu.Lock()
	next := *a.u
	next.Path = path
	next.RawPath = ""
	a.u = &next
	fn := a.onChange
	link := next.String()
	a.mu.Unlock()

	if fn != nil {
		fn(link)
	}
	return nil
}

// String returns the full link
func (a *URLAddress) String() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.u.String()
}

// FirstSegment returns the first non-empty path segment of path
func FirstSegment(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}
