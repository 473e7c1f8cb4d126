package id

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string. ULIDs sort by creation time, which keeps
// receipt keys and delivery ids in chronological order.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// At generates a ULID stamped with t instead of the wall clock.
func At(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
