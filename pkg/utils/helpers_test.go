package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Helpers(t *testing.T) {
	t.Run("SnakeCase", func(t *testing.T) {
		assert.Equal(t, "offering_open_time", SnakeCase("offering-open_time"))
	})
	t.Run("Map", func(t *testing.T) {
		out := Map([]int{1, 2, 3}, func(v int, i uint64) uint64 {
			return uint64(v)*10 + i
		})
		assert.Equal(t, []uint64{10, 21, 32}, out)
	})
}
