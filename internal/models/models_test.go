package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testMovie(id uint, p string) *Movie {
	return &Movie{
		ID:       id,
		Title:    "test_title",
		Director: "test_director",
		Year:     2020,
		Price:    price(p),
		Stock:    5,
	}
}

func TestCartTotals(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(1, "10.00"), 2)

	require.Equal(t, "20.00", cart.Subtotal.StringFixed(2))
	require.Equal(t, "4.20", cart.Tax.StringFixed(2))
	require.Equal(t, "24.20", cart.Total.StringFixed(2))
	require.True(t, cart.Total.Equal(cart.Subtotal.Add(cart.Tax)))
}

func TestCartAddMergesByMovie(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(7, "5.50"), 1)
	cart.AddItem(testMovie(7, "5.50"), 3)

	require.Len(t, cart.Items, 1)
	require.Equal(t, 4, cart.Items[0].Quantity)
	require.Equal(t, "22.00", cart.Items[0].Subtotal.StringFixed(2))
}

func TestCartAddCoercesQuantity(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(1, "3.00"), 0)

	require.Equal(t, 1, cart.Items[0].Quantity)
}

func TestCartRecomputeIdempotent(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(1, "10.00"), 2)
	cart.AddItem(testMovie(2, "3.33"), 3)

	first := cart.Total
	cart.RecomputeTotals()
	cart.RecomputeTotals()

	require.True(t, first.Equal(cart.Total))
}

func TestCartStoredTotalsNotTrusted(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1, Total: price("999.99")}
	cart.RecomputeTotals()

	require.Equal(t, "0.00", cart.Total.StringFixed(2))
}

func TestCartUpdateQuantityZeroRemoves(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(1, "10.00"), 2)
	cart.Items[0].ID = 42

	removed, err := cart.UpdateItemQuantity(42, 0)
	require.NoError(t, err)
	require.NotNil(t, removed)
	require.True(t, cart.IsEmpty())
	require.Equal(t, "0.00", cart.Subtotal.StringFixed(2))
	require.Equal(t, "0.00", cart.Tax.StringFixed(2))
	require.Equal(t, "0.00", cart.Total.StringFixed(2))
}

func TestCartUpdateQuantityUnknownItem(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}

	_, err := cart.UpdateItemQuantity(99, 2)
	require.Error(t, err)
}

func TestCartRemoveItem(t *testing.T) {
	cart := &Cart{ID: 1, UserID: 1}
	cart.AddItem(testMovie(1, "10.00"), 1)
	cart.AddItem(testMovie(2, "20.00"), 1)
	cart.Items[0].ID = 1
	cart.Items[1].ID = 2

	_, err := cart.RemoveItem(1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	require.Equal(t, "20.00", cart.Subtotal.StringFixed(2))

	_, err = cart.RemoveItem(1)
	require.Error(t, err)
}

func TestOrderItemSnapshot(t *testing.T) {
	movie := testMovie(3, "12.50")
	movie.Title = "Blade Runner"
	movie.Director = "Ridley Scott"
	movie.Year = 1982

	item := NewOrderItem(movie, 2)

	// Правка каталога после покупки не трогает снимок.
	movie.Title = "otro"
	movie.Director = "otra"
	movie.Year = 2099
	movie.Price = price("99.99")

	require.Equal(t, "Blade Runner", item.MovieTitle)
	require.Equal(t, "Ridley Scott", item.MovieDirector)
	require.Equal(t, 1982, item.MovieYear)
	require.Equal(t, "12.50", item.UnitPrice.StringFixed(2))
	require.Equal(t, "25.00", item.Subtotal.StringFixed(2))
}

func TestOrderTotals(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	require.NoError(t, order.AddItem(NewOrderItem(testMovie(1, "10.00"), 2)))

	require.Equal(t, "20.00", order.Subtotal.StringFixed(2))
	require.Equal(t, "4.20", order.Tax.StringFixed(2))
	require.Equal(t, "24.20", order.Total.StringFixed(2))
}

func TestOrderMutationOnlyWhilePending(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	require.NoError(t, order.AddItem(NewOrderItem(testMovie(1, "10.00"), 1)))
	require.NoError(t, order.Confirm())

	err := order.AddItem(NewOrderItem(testMovie(2, "5.00"), 1))
	require.Error(t, err)
	require.Error(t, order.RemoveItem(1))
}

func TestOrderLifecycle(t *testing.T) {
	order := &Order{Status: OrderStatusPending}

	require.NoError(t, order.Confirm())
	require.NotNil(t, order.ConfirmedAt)

	require.NoError(t, order.Ship())
	require.NotNil(t, order.ShippedAt)

	require.NoError(t, order.Deliver())
	require.NotNil(t, order.DeliveredAt)
	require.True(t, order.IsFinal())

	require.Error(t, order.Cancel())
	require.Error(t, order.Confirm())
}

func TestOrderIllegalTransitions(t *testing.T) {
	order := &Order{Status: OrderStatusPending}
	require.Error(t, order.Ship())
	require.Error(t, order.Deliver())

	order.Status = OrderStatusDelivered
	require.Error(t, order.Confirm())
	require.False(t, order.CanBeCancelled())

	order.Status = OrderStatusReturned
	require.True(t, order.IsFinal())
}

func TestOrderCancel(t *testing.T) {
	for _, status := range []string{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing} {
		order := &Order{Status: status}
		require.NoError(t, order.Cancel(), status)
		require.Equal(t, OrderStatusCancelled, order.Status)
	}

	order := &Order{Status: OrderStatusCancelled}
	require.Error(t, order.Cancel())
}
