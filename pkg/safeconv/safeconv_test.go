package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustUint32ToUint16(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint16(0), MustUint32ToUint16(0))
	assert.Equal(t, uint16(math.MaxUint16), MustUint32ToUint16(math.MaxUint16))

	assert.PanicsWithValue(t, "safeconv: uint32 to uint16 overflow", func() {
		MustUint32ToUint16(math.MaxUint16 + 1)
	})
}

func TestMustIntToUint16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    int
		want  uint16
		panic bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "field id", in: 28, want: 28},
		{name: "max", in: math.MaxUint16, want: math.MaxUint16},
		{name: "negative", in: -1, panic: true},
		{name: "overflow", in: math.MaxUint16 + 1, panic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.panic {
				assert.PanicsWithValue(t, "safeconv: int to uint16 out of bounds", func() { MustIntToUint16(tt.in) })

				return
			}

			assert.Equal(t, tt.want, MustIntToUint16(tt.in))
		})
	}
}
