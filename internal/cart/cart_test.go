package cart

import (
	"context"
	"errors"
	"testing"

	"tablesync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMenu = models.Menu{
	{ID: "m1", Name: "Paneer Tikka", Price: 120, Available: true},
	{ID: "m7", Name: "Butter Naan", Price: 40, Available: true},
	{ID: "m9", Name: "Gulab Jamun", Price: 60, Available: false},
}

type fakePlacer struct {
	err     error
	tableID string
	items   []models.OrderItem
}

func (f *fakePlacer) PlaceOrder(_ context.Context, tableID string, items []models.OrderItem) (models.Order, error) {
	if f.err != nil {
		return models.Order{}, f.err
	}
	f.tableID = tableID
	f.items = items
	return models.Order{ID: "o1", TableID: tableID, Items: items, TotalAmount: models.SumItems(items)}, nil
}

func TestAddMergesByMenuItem(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("m1", testMenu))
	require.NoError(t, c.SetNote("m1", "extra spicy"))
	require.NoError(t, c.Add("m1", testMenu))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "extra spicy", items[0].Note)
	assert.Equal(t, 120.0, items[0].Price)
}

func TestAddRejectsUnavailableAndUnknown(t *testing.T) {
	c := New()
	assert.ErrorIs(t, c.Add("m9", testMenu), models.ErrItemUnavailable)
	assert.ErrorIs(t, c.Add("nope", testMenu), models.ErrNotFound)
	assert.True(t, c.IsEmpty())
}

func TestAddKeepsPriceSnapshot(t *testing.T) {
	menu := append(models.Menu(nil), testMenu...)
	c := New()
	require.NoError(t, c.Add("m1", menu))

	menu[0].Price = 999
	require.NoError(t, c.Add("m1", menu))

	assert.Equal(t, 240.0, c.Total())
}

func TestSetQuantityClampsAtOne(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("m7", testMenu))
	require.NoError(t, c.SetQuantity("m7", 3))
	assert.Equal(t, 4, c.Items()[0].Quantity)

	require.NoError(t, c.SetQuantity("m7", -10))
	assert.Equal(t, 1, c.Items()[0].Quantity)

	require.NoError(t, c.SetQuantity("m7", -1))
	assert.Equal(t, 1, c.Items()[0].Quantity)

	assert.ErrorIs(t, c.SetQuantity("m1", 1), models.ErrNotFound)
}

func TestRemoveAndTotal(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("m1", testMenu))
	require.NoError(t, c.Add("m7", testMenu))
	require.NoError(t, c.SetQuantity("m7", 1))
	assert.Equal(t, 200.0, c.Total())

	c.Remove("m1")
	c.Remove("absent")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 80.0, c.Total())
}

func TestItemsReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("m1", testMenu))
	items := c.Items()
	items[0].Quantity = 50
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestCheckout(t *testing.T) {
	c := New()
	placer := &fakePlacer{}

	_, err := c.Checkout(context.Background(), placer, "t3")
	assert.ErrorIs(t, err, models.ErrEmptyCart)

	require.NoError(t, c.Add("m1", testMenu))
	_, err = c.Checkout(context.Background(), placer, "")
	assert.ErrorIs(t, err, models.ErrNoTableSelected)
	assert.Equal(t, 1, c.Len())

	order, err := c.Checkout(context.Background(), placer, "t3")
	require.NoError(t, err)
	assert.Equal(t, "t3", order.TableID)
	assert.Equal(t, "t3", placer.tableID)
	assert.True(t, c.IsEmpty())
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	c := New()
	require.NoError(t, c.Add("m1", testMenu))
	require.NoError(t, c.Add("m1", testMenu))

	_, err := c.Checkout(context.Background(), &fakePlacer{err: errors.New("boom")}, "t3")
	require.Error(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, c.Items()[0].Quantity)
}
