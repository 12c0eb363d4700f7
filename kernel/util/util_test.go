package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 3, Min(3, 7))
	assert.Equal(t, 3, Min(7, 3))
	assert.Equal(t, 7, Max(3, 7))
	assert.Equal(t, 7, Max(7, 3))
}

func TestRoundupRounddown(t *testing.T) {
	assert.EqualValues(t, 8, Roundup(5, 4))
	assert.EqualValues(t, 8, Roundup(8, 4))
	assert.EqualValues(t, 4, Rounddown(5, 4))
	assert.EqualValues(t, 8, Rounddown(8, 4))
}

func TestAlignUpAlignDown(t *testing.T) {
	assert.EqualValues(t, 0x1000, AlignUp(0x1, 0x1000))
	assert.EqualValues(t, 0x1000, AlignUp(0x1000, 0x1000))
	assert.EqualValues(t, 0x2000, AlignUp(0x1001, 0x1000))
	assert.EqualValues(t, 0x1000, AlignDown(0x1fff, 0x1000))
	assert.EqualValues(t, 0, AlignDown(0xfff, 0x1000))
}

func TestCeilDiv(t *testing.T) {
	assert.EqualValues(t, 3, CeilDiv(9, 3))
	assert.EqualValues(t, 4, CeilDiv(10, 3))
	assert.EqualValues(t, 0, CeilDiv(0, 3))
}

func TestNextPow2(t *testing.T) {
	cases := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1023: 1024, 1024: 1024}
	for in, want := range cases {
		assert.Equalf(t, want, NextPow2(in), "NextPow2(%d)", in)
	}
}

func TestLog2Floor(t *testing.T) {
	cases := map[uint64]uint{1: 0, 2: 1, 3: 1, 4: 2, 1023: 9, 1024: 10, 2048: 11}
	for in, want := range cases {
		assert.Equalf(t, want, Log2Floor(in), "Log2Floor(%d)", in)
	}
}

func TestLog2FloorPanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { Log2Floor(0) })
}
