// Package storage provides the backends that hold uploaded exam documents.
//
// Every backend returns an opaque reference string from Upload which is later handed
// back to Open.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound indicates the referenced object does not exist in the backend.
var ErrNotFound = errors.New("stored object not found")

// objectName prefixes the sanitized file name with a random identifier so uploads never collide.
func objectName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == "" {
		base = "document.bin"
	}
	return fmt.Sprintf("%s-%s", uuid.NewString(), base)
}
