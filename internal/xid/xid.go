package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

var newRandom = uuid.NewRandom

// New returns a prefixed random identifier such as "log-3f0c...". If the
// random source fails it falls back to a nanosecond timestamp.
func New(prefix string) string {
	id, err := newRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}
