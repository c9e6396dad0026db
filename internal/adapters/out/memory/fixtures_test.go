package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFixtures = `
shops:
  - id: s1
    name: Tea House
    ownerId: uid-1
products:
  - id: p1
    shopId: s1
    name: Sencha
    unitPrice: 200
  - id: p2
    shopId: s1
    name: Gyokuro
    unitPrice: 250
    discountType: percentage
    discountValue: 10
`

func TestParseFixtures_Apply(t *testing.T) {
	f, err := ParseFixtures([]byte(sampleFixtures))
	require.NoError(t, err)

	c := NewCatalogMem()
	f.Apply(c)

	ps, err := c.ListByIDs(context.Background(), "s1", []string{"p1", "p2", "p2", "nope"})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "percentage", ps[1].DiscountType)

	foreign, err := c.ListByIDs(context.Background(), "s2", []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, foreign)

	s, err := c.Shops().GetByOwnerID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "Tea House", s.Name)
}

func TestParseFixtures_RequiresShop(t *testing.T) {
	_, err := ParseFixtures([]byte("products:\n  - id: p1\n"))
	assert.Error(t, err)
}
