package transport

import (
	"strings"
	"sync/atomic"

	"github.com/uhyunpark/polyperp/pkg/sdkerr"
)

// Credentials holds the API key shared by every Client built from it.
// Update is last-writer-wins; a request reads the key once when it is built,
// so an in-flight request keeps whichever key it started with.
type Credentials struct {
	apiKey atomic.Pointer[string]
}

func NewCredentials(apiKey string) *Credentials {
	c := &Credentials{}
	c.apiKey.Store(&apiKey)
	return c
}

// APIKey returns the current key
func (c *Credentials) APIKey() string {
	return *c.apiKey.Load()
}

// Update replaces the key for all subsequent requests
func (c *Credentials) Update(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return sdkerr.New(sdkerr.KindValidation, "API key cannot be empty", nil)
	}
	c.apiKey.Store(&apiKey)
	return nil
}
