//go:build opencv

package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fracturemask/internal/models"
)

func TestNativeFillWritesMask(t *testing.T) {
	m := models.NewBinaryMask(12, 12)
	require.NoError(t, fillPolygons(m, []models.Polygon{
		{{X: 3.7, Y: 3.2}, {X: 7.9, Y: 3.2}, {X: 7.9, Y: 7.5}, {X: 3.7, Y: 7.5}},
	}))

	// vertices truncate to (3,3)-(7,7), filled inclusively
	assert.Equal(t, 25, m.Count())
	assert.Equal(t, uint8(1), m.At(3, 3))
	assert.Equal(t, uint8(1), m.At(7, 7))
	assert.Equal(t, uint8(0), m.At(8, 8))
	for _, v := range m.Data {
		assert.LessOrEqual(t, v, uint8(1))
	}
}
