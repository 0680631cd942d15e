package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAfterObservedCancelNeverConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for i := 0; i < 200; i++ {
		email := fmt.Sprintf("user%d@example.edu", i)
		w := newWatch(email, 12345, 202510)
		require.NoError(t, s.Create(ctx, w))

		done := make(chan error, 1)
		go func() { done <- s.Cancel(ctx, w.ID, time.Now().UTC()) }()

		// Wait until the record reads as inactive, then register again.
		for {
			got, ok := s.get(w.ID)
			require.True(t, ok)
			if !got.IsActive {
				break
			}
		}
		assert.NoError(t, s.Create(ctx, newWatch(email, 12345, 202510)), "iteration %d", i)
		require.NoError(t, <-done)
	}
}
