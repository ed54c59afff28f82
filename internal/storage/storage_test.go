package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellGetSetWith(t *testing.T) {
	c := NewCell(5)
	assert.Equal(t, 5, c.Get())
	c.Set(7)
	assert.Equal(t, 7, c.Get())
	c.With(func(v *int) { *v += 1 })
	assert.Equal(t, 8, c.Get())
}

func TestFloat32BufferRoundTrip(t *testing.T) {
	b, err := NewFloat32Buffer(2, 3)
	require.NoError(t, err)
	shadow := b.Expand()
	require.Len(t, shadow, 6)
	shadow[0] = 1.5
	shadow[5] = -2.25
	b.Compress(shadow)
	got := b.Expand()
	assert.Equal(t, 1.5, got[0])
	assert.Equal(t, -2.25, got[5])
}

func TestQuantized16BufferRoundTripWithinTolerance(t *testing.T) {
	b, err := NewQuantized16Buffer(1, 4)
	require.NoError(t, err)
	shadow := []float64{100, -50, 0, 32767}
	b.Compress(shadow)
	assert.InDelta(t, float32(1.0), b.Scale(), 1e-6)

	got := b.Expand()
	for i, want := range shadow {
		assert.InDelta(t, want, got[i], 1.0, "cell %d", i)
	}
}

func TestQuantized16BufferAllZeroScaleStaysOne(t *testing.T) {
	b, err := NewQuantized16Buffer(1, 2)
	require.NoError(t, err)
	b.Compress([]float64{0, 0})
	assert.Equal(t, float32(1), b.Scale())
	got := b.Expand()
	assert.Equal(t, []float64{0, 0}, got)
}

func TestAllocateUncompressedAndCompressed(t *testing.T) {
	ns, err := Allocate(3, 10, false)
	require.NoError(t, err)
	assert.False(t, ns.Compressed())
	_, ok := ns.CumRegret.Get().(*Float32Buffer)
	assert.True(t, ok)

	require.NoError(t, ns.Reallocate(true))
	assert.True(t, ns.Compressed())
	_, ok = ns.CumRegret.Get().(*Quantized16Buffer)
	assert.True(t, ok)
}

func TestAllocateRejectsNonPositiveShape(t *testing.T) {
	_, err := Allocate(0, 10, false)
	assert.Error(t, err)
	_, err = Allocate(3, 0, false)
	assert.Error(t, err)
}
