package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFunc lets tests pin the current time.
func TestFunc(t *testing.T) {
	t.Parallel()

	pinned := time.Unix(42, 0)
	c := Func(func() time.Time { return pinned })

	require.Equal(t, pinned, c.Now())
}

// TestSystem follows the wall clock.
func TestSystem(t *testing.T) {
	t.Parallel()

	require.WithinDuration(t, time.Now(), System{}.Now(), time.Second)
}
