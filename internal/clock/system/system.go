// Package system provides the wall clock used outside tests.
package system

import (
	"time"

	"github.com/JakeFAU/articlegen/internal/article"
)

// Clock reports UTC time at millisecond precision, the resolution job
// timestamps are serialized with.
type Clock struct{}

var _ article.Clock = Clock{}

// New creates a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current UTC time truncated to milliseconds.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
