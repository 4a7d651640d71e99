// Package escrow generates the opaque handles that reference external escrow
// accounts. A handle is unique per order and never reused.
package escrow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const randomBytes = 8

// NewHandle returns an opaque escrow reference of the form
// escrow_<unix-millis>_<random-suffix>. The timestamp keeps handles roughly
// sortable; the random suffix guarantees uniqueness across concurrent orders
// in the same millisecond.
func NewHandle() (string, error) {
	suffix := make([]byte, randomBytes)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate escrow handle suffix: %w", err)
	}

	return fmt.Sprintf("escrow_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix)), nil
}
