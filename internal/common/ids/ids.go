// Package ids generates the identifiers of packaging passes.
package ids

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewPassId returns a lowercase ULID. Ids generated by the same process sort in the order they were made,
// so pass ids in the logs can be ordered without timestamps.
func NewPassId() string {
	mu.Lock()
	defer mu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}
