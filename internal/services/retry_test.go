package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryOnStaleRecoversOnce(t *testing.T) {
	calls := 0
	err := retryOnStale(func() error {
		calls++
		if calls == 1 {
			return errStaleInvoice
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnStalePersistentConflict(t *testing.T) {
	calls := 0
	err := retryOnStale(func() error {
		calls++
		return errStaleInvoice
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, calls)
}

func TestRetryOnStalePassesOtherErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := retryOnStale(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
