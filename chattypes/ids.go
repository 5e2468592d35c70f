package chattypes

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDTime decodes the creation time embedded in a ULID message id.
func IDTime(id string) (time.Time, error) {
	parsed, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	return ulid.Time(parsed.Time()), nil
}

// NewID returns a ULID for the given time.
func NewID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// CompareIDs orders ids chronologically. ULIDs sort lexicographically by creation time.
func CompareIDs(a, b string) int {
	return strings.Compare(a, b)
}
