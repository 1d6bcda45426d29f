package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int", 42, 42},
		{"int64", int64(1 << 40), 1 << 40},
		{"string number", "2048", 2048},
		{"string negative", "-7", -7},
		{"string garbage", "n/a", 0},
		{"empty string", "", 0},
		{"bytes", []byte("512"), 512},
		{"float", 3.9, 3},
		{"nil-ish default", struct{}{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToInt64(tt.in))
		})
	}
}

func TestKBToMBFloor(t *testing.T) {
	assert.Equal(t, int64(2), KBToMBFloor(2048))
	assert.Equal(t, int64(1), KBToMBFloor(2047))
	assert.Equal(t, int64(0), KBToMBFloor(1023))
	assert.Equal(t, int64(0), KBToMBFloor(0))
	assert.Equal(t, int64(0), KBToMBFloor(-4096))
}
