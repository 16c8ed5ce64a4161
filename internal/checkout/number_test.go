package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderNumber(t *testing.T) {
	assert.Equal(t, "123456", orderNumber(time.UnixMilli(1700000123456)))
	assert.Equal(t, "000042", orderNumber(time.UnixMilli(1700000000042)))
}

func TestMergeLinesKeepsFirstSeenOrder(t *testing.T) {
	a, b := "65a000000000000000000001", "65a000000000000000000002"
	lines, err := mergeLines([]ItemInput{
		{ProductID: a, Color: "Blue", Quantity: 1},
		{ProductID: b, Color: "Blue", Quantity: 2},
		{ProductID: a, Color: "Blue", Quantity: 3},
		{ProductID: a, Color: "blue", Quantity: 1},
	})
	assert.NoError(t, err)
	assert.Len(t, lines, 3, "color names match exactly")
	assert.Equal(t, 4, lines[0].quantity)
	assert.Equal(t, b, lines[1].productID.Hex())
}
