// Package ident provides item identifier generation and validation.
//
// Items carry either a temporary id generated on this device before the
// remote store has confirmed the create, or a permanent id assigned by the
// remote store. The fixed "tmp-" prefix lets the sync engine branch on
// "is this still pending creation".
package ident

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempPrefix marks client-generated temporary ids.
const TempPrefix = "tmp-"

// Temp id format: tmp-<unix millis>-<8 hex chars>
var tempRegex = regexp.MustCompile(`^tmp-\d+-[0-9a-f]{8}$`)

// NewTemp generates a new temporary id. The time component plus the random
// component keeps ids distinct across a single device's lifetime.
func NewTemp() string {
	rand := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s%d-%s", TempPrefix, time.Now().UnixMilli(), rand)
}

// IsTemp reports whether id carries the temporary prefix.
func IsTemp(id string) bool {
	return strings.HasPrefix(id, TempPrefix)
}

// IsValidTemp checks the full temporary id format, not just the prefix.
func IsValidTemp(id string) bool {
	return tempRegex.MatchString(id)
}

// Validate returns an error for ids that can never be stored: empty ids,
// or permanent-looking ids that collide with the temporary namespace
// without matching its format.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("empty id")
	}
	if IsTemp(id) && !IsValidTemp(id) {
		return fmt.Errorf("malformed temporary id: %q", id)
	}
	return nil
}
