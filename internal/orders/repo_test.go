package orders_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/romix/stock-api/internal/catalog"
	"github.com/romix/stock-api/internal/orders"
	"github.com/romix/stock-api/internal/postgres"
	"github.com/romix/stock-api/internal/stock"
)

// Integration tests run against TEST_POSTGRES_DSN and are skipped when it is
// unset. Each test works on uniquely named products so runs don't interfere.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(ctx, db))
	t.Cleanup(db.Close)
	return db
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, uuid.NewString()[:8])
}

type counters struct{ onHand, reserved, sold int }

func variantCounters(t *testing.T, db *pgxpool.Pool, name, color, size string) counters {
	t.Helper()
	var c counters
	err := db.QueryRow(context.Background(),
		`SELECT v.on_hand, v.reserved, v.sold
		 FROM product_variants v JOIN products p ON p.id = v.product_id
		 WHERE p.name=$1 AND v.color=$2 AND v.size=$3`,
		name, color, size).Scan(&c.onHand, &c.reserved, &c.sold)
	require.NoError(t, err)
	return c
}

func TestReservationLifecycle(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	cat := &catalog.Repo{DB: db}
	repo := &orders.Repo{DB: db}
	views := &stock.Views{DB: db}

	name := uniqueName("Shirt")
	require.NoError(t, cat.Restock(ctx, name, "Black", "M", 5, "tshirt"))

	avail, err := views.Availability(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, avail[name]["Black"]["M"])

	orderID, err := repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: name, Color: "Black", Size: "M", Quantity: 3, UnitPrice: 19.9},
	}, "web", "")
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	status, err := repo.GetStatus(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusReserved, status)

	avail, err = views.Availability(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, avail[name]["Black"]["M"])
	assert.Equal(t, counters{onHand: 5, reserved: 3, sold: 0}, variantCounters(t, db, name, "Black", "M"))

	// confirm settles: reserved and on_hand drop, sold rises, availability holds
	require.NoError(t, repo.Confirm(ctx, orderID))
	assert.Equal(t, counters{onHand: 2, reserved: 0, sold: 3}, variantCounters(t, db, name, "Black", "M"))

	avail, err = views.Availability(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, avail[name]["Black"]["M"])

	// re-confirm is an idempotent no-op with no further ledger change
	require.NoError(t, repo.Confirm(ctx, orderID))
	assert.Equal(t, counters{onHand: 2, reserved: 0, sold: 3}, variantCounters(t, db, name, "Black", "M"))

	// reserving more than remains now reports the true availability
	_, err = repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: name, Color: "Black", Size: "M", Quantity: 5},
	}, "", "")
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)

	// paid orders cannot be canceled
	err = repo.Cancel(ctx, orderID)
	assert.ErrorIs(t, err, orders.ErrUnsupportedTransition)
}

func TestCancelReleasesWithoutSelling(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	cat := &catalog.Repo{DB: db}
	repo := &orders.Repo{DB: db}

	name := uniqueName("Calza")
	require.NoError(t, cat.Restock(ctx, name, "Negro", "1", 4, ""))

	orderID, err := repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: name, Color: "Negro", Size: "1", Quantity: 3, UnitPrice: 5},
	}, "", "mostrador")
	require.NoError(t, err)
	assert.Equal(t, counters{onHand: 4, reserved: 3, sold: 0}, variantCounters(t, db, name, "Negro", "1"))

	require.NoError(t, repo.Cancel(ctx, orderID))
	assert.Equal(t, counters{onHand: 4, reserved: 0, sold: 0}, variantCounters(t, db, name, "Negro", "1"))

	// idempotent re-cancel, then no path back out of the terminal state
	require.NoError(t, repo.Cancel(ctx, orderID))
	assert.ErrorIs(t, repo.Confirm(ctx, orderID), orders.ErrUnsupportedTransition)

	status, err := repo.GetStatus(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCanceled, status)
}

func TestReservationRejectsUnknownVariant(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	cat := &catalog.Repo{DB: db}
	repo := &orders.Repo{DB: db}

	name := uniqueName("Campera")
	require.NoError(t, cat.Restock(ctx, name, "Gris", "M", 2, ""))

	// product exists, this color/size was never restocked
	_, err := repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: name, Color: "Gris", Size: "XL", Quantity: 1},
	}, "", "")
	assert.ErrorIs(t, err, stock.ErrUnknownVariant)

	// nothing was reserved on the sibling variant either
	assert.Equal(t, counters{onHand: 2, reserved: 0, sold: 0}, variantCounters(t, db, name, "Gris", "M"))
}

func TestReservationIsAllOrNothing(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	cat := &catalog.Repo{DB: db}
	repo := &orders.Repo{DB: db}

	name := uniqueName("Remera")
	require.NoError(t, cat.Restock(ctx, name, "Negro", "S", 10, ""))

	// second line fails, so the first line's hold must be rolled back too
	_, err := repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: name, Color: "Negro", Size: "S", Quantity: 2},
		{Name: name, Color: "Negro", Size: "S", Quantity: 100},
	}, "", "")
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	assert.Equal(t, counters{onHand: 10, reserved: 0, sold: 0}, variantCounters(t, db, name, "Negro", "S"))
}

func TestInvalidItems(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	repo := &orders.Repo{DB: db}

	_, err := repo.CreateReservation(ctx, nil, "", "")
	assert.ErrorIs(t, err, orders.ErrInvalidItem)

	_, err = repo.CreateReservation(ctx, []orders.ItemInput{
		{Name: "Shirt", Color: "Black", Size: "M", Quantity: 0},
	}, "", "")
	assert.ErrorIs(t, err, orders.ErrInvalidItem)
}

func TestNoOversellUnderConcurrentReservations(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	cat := &catalog.Repo{DB: db}
	repo := &orders.Repo{DB: db}

	name := uniqueName("Polar")
	require.NoError(t, cat.Restock(ctx, name, "Gris", "M", 1, ""))

	items := []orders.ItemInput{{Name: name, Color: "Gris", Size: "M", Quantity: 1}}
	results := make([]error, 2)

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			_, err := repo.CreateReservation(ctx, items, "", "")
			results[i] = err
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var failures int
	for _, err := range results {
		if err != nil {
			var insufficient *stock.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			assert.Equal(t, 0, insufficient.Available)
			failures++
		}
	}
	assert.Equal(t, 1, failures, "exactly one of two racing reservations must lose")
	assert.Equal(t, counters{onHand: 1, reserved: 1, sold: 0}, variantCounters(t, db, name, "Gris", "M"))
}

func TestOrderNotFound(t *testing.T) {
	db := testPool(t)
	ctx := context.Background()
	repo := &orders.Repo{DB: db}

	assert.ErrorIs(t, repo.Confirm(ctx, uuid.NewString()), orders.ErrOrderNotFound)
	assert.ErrorIs(t, repo.Cancel(ctx, uuid.NewString()), orders.ErrOrderNotFound)

	_, err := repo.GetStatus(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}
