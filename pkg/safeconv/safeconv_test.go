package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/vuesetup/pkg/safeconv"
)

func TestMustUintToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, safeconv.MustUintToInt(0))
	assert.Equal(t, 42, safeconv.MustUintToInt(42))
	assert.Equal(t, safeconv.MaxInt, safeconv.MustUintToInt(uint(safeconv.MaxInt)))
	assert.Panics(t, func() { safeconv.MustUintToInt(uint(safeconv.MaxInt) + 1) })
}

func TestClampToUint64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   int64
		want uint64
	}{
		{name: "negative", in: -5, want: 0},
		{name: "zero", in: 0, want: 0},
		{name: "positive", in: 7, want: 7},
		{name: "max", in: math.MaxInt64, want: math.MaxInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, safeconv.ClampToUint64(tt.in))
		})
	}
}
