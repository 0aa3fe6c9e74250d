package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Errors(t *testing.T) {
	t.Run("Wrapped errors keep their identity and kind", func(t *testing.T) {
		err := Wrap(ErrLimitExceeded, "pool %d", 0)
		assert.True(t, errors.Is(err, ErrLimitExceeded))
		assert.False(t, errors.Is(err, ErrInvalidAmount))

		kind, ok := KindOf(fmt.Errorf("outer: %w", err))
		assert.True(t, ok)
		assert.Equal(t, ErrorKind_Validation, kind)
		assert.Equal(t, "LimitExceeded", CodeOf(err))
	})
	t.Run("Non ledger errors have no kind", func(t *testing.T) {
		_, ok := KindOf(errors.New("boom"))
		assert.False(t, ok)
		assert.Equal(t, "", CodeOf(nil))
	})
	t.Run("Codes are unique and resolvable", func(t *testing.T) {
		seen := make(map[string]bool)
		for _, e := range allErrors {
			assert.False(t, seen[e.Code], e.Code)
			seen[e.Code] = true

			found, ok := ErrorByCode(e.Code)
			assert.True(t, ok)
			assert.Equal(t, e, found)
		}
		_, ok := ErrorByCode("nope")
		assert.False(t, ok)
	})
}

func Test_ManualClock(t *testing.T) {
	c := NewManualClock(100)
	c.Advance(50)
	assert.Equal(t, Timestamp(150), c.Now())
	c.Set(120)
	assert.Equal(t, Timestamp(150), c.Now())
	c.Set(200)
	assert.Equal(t, Timestamp(200), c.Now())
}
