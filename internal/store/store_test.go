package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/database/dbtest"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/store"
)

func setup(t *testing.T) (*store.Store, context.Context) {
	t.Helper()
	return store.New(dbtest.NewPool(t, 4)), context.Background()
}

func seedProduct(t *testing.T, s *store.Store, name, category, brand, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		Category:          category,
		Brand:             brand,
		Subcategory:       models.Tags{"Food"},
		StockQuantity:     stock,
		LowStockThreshold: models.DefaultLowStockThreshold,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func codes(list ...string) store.CodeGenerator {
	i := 0
	return func() (string, error) {
		code := list[i%len(list)]
		i++
		return code, nil
	}
}

func TestCreateAndGetProduct(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "Acme", "59.97", 3)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kibble", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("59.97")))
	assert.Equal(t, models.Tags{"Food"}, got.Subcategory)
	assert.True(t, got.InStock)
	assert.NotNil(t, got.LastRestocked)

	_, err = s.GetProduct(ctx, p.ID+100)
	assert.True(t, apperr.IsNotFound(err))
}

func TestListProductsByCategoryPushesFiltersDown(t *testing.T) {
	s, ctx := setup(t)
	seedProduct(t, s, "Kibble", "dog", "Acme", "50", 3)
	seedProduct(t, s, "Bone", "dog", "Chewy", "10", 3)
	seedProduct(t, s, "Leash", "dog", "Acme", "120", 3)
	seedProduct(t, s, "Seed", "bird", "Acme", "5", 3)

	all, err := s.ListProductsByCategory(ctx, store.ProductFilter{Category: "dog"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	min := decimal.NewFromInt(20)
	max := decimal.NewFromInt(100)
	narrowed, err := s.ListProductsByCategory(ctx, store.ProductFilter{Category: "dog", Brand: "Acme", MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, narrowed, 1)
	assert.Equal(t, "Kibble", narrowed[0].Name)

	brands, err := s.Brands(ctx, "dog")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Chewy"}, brands)
}

func TestListProductsByCategoryIncludesExactPriceBounds(t *testing.T) {
	s, ctx := setup(t)
	seedProduct(t, s, "Kibble", "cat", "Acme", "59.97", 3)
	seedProduct(t, s, "Treats", "cat", "Acme", "0.10", 3)
	seedProduct(t, s, "Tower", "cat", "Acme", "59.98", 3)

	min := decimal.RequireFromString("0.10")
	max := decimal.RequireFromString("59.97")
	got, err := s.ListProductsByCategory(ctx, store.ProductFilter{Category: "cat", MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Kibble", got[0].Name)
	assert.Equal(t, "Treats", got[1].Name)

	min = decimal.RequireFromString("59.97")
	got, err = s.ListProductsByCategory(ctx, store.ProductFilter{Category: "cat", MinPrice: &min, MaxPrice: &max})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kibble", got[0].Name)
}

func TestSearchProducts(t *testing.T) {
	s, ctx := setup(t)
	seedProduct(t, s, "Salmon Kibble", "cat", "", "20", 1)
	seedProduct(t, s, "Scratching Post", "cat", "", "40", 1)

	found, err := s.SearchProducts(ctx, "KIBBLE", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Salmon Kibble", found[0].Name)

	none, err := s.SearchProducts(ctx, "100%", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDecrementStockClampsAtZero(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "", "10", 3)

	qty, err := s.DecrementStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, qty)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
	assert.False(t, got.InStock)
}

func TestAdjustStockStampsRestockOnlyForPositiveDelta(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "", "10", 0)
	before, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, before.LastRestocked)

	_, err = s.AdjustStock(ctx, p.ID, -1)
	require.NoError(t, err)
	after, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, after.LastRestocked)

	level, err := s.AdjustStock(ctx, p.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, level.Quantity)
	assert.False(t, level.Low())

	restocked, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, restocked.LastRestocked)
	assert.True(t, restocked.InStock)
}

func TestReserveStockRefusesShortfall(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "", "10", 2)

	err := s.InTx(ctx, func(tx *store.Tx) error {
		ok, err := tx.ReserveStock(ctx, p.ID, 3)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = tx.ReserveStock(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
	assert.False(t, got.InStock)
}

func TestStockStatsAndLowStock(t *testing.T) {
	s, ctx := setup(t)
	seedProduct(t, s, "Empty", "dog", "", "10", 0)
	seedProduct(t, s, "Low", "dog", "", "10", 4)
	seedProduct(t, s, "Plenty", "dog", "", "10", 40)

	stats, err := s.StockStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StockStats{TotalProducts: 3, TotalUnits: 44, OutOfStock: 1, LowStock: 2}, stats)

	low, err := s.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Empty", low[0].Name)

	n, err := s.CountLowStock(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = s.CountLowStock(ctx, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDeleteProductKeepsOrderSnapshot(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "", "10", 2)
	order := &models.Order{
		Items:      models.LineItems{{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1}},
		TotalPrice: p.Price,
		Contact:    models.Contact{Name: "Ada", Address: "1 Main St"},
		Status:     models.StatusPreparing,
	}
	code, err := s.InsertOrder(ctx, order, codes("AAAA-BBBB-CCCC-DDDD"))
	require.NoError(t, err)

	category, err := s.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "dog", category)

	got, err := s.GetOrderByCode(ctx, code)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Kibble", got.Items[0].Name)
}

func TestInsertOrderRegeneratesCollidingCode(t *testing.T) {
	s, ctx := setup(t)
	first := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	_, err := s.InsertOrder(ctx, first, codes("AAAA-AAAA-AAAA-AAAA"))
	require.NoError(t, err)

	second := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	code, err := s.InsertOrder(ctx, second, codes("AAAA-AAAA-AAAA-AAAA", "BBBB-BBBB-BBBB-BBBB"))
	require.NoError(t, err)
	assert.Equal(t, "BBBB-BBBB-BBBB-BBBB", code)

	third := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	_, err = s.InsertOrder(ctx, third, codes("AAAA-AAAA-AAAA-AAAA"))
	assert.Error(t, err)
}

func TestGetOrderByCodeIgnoresCase(t *testing.T) {
	s, ctx := setup(t)
	o := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	_, err := s.InsertOrder(ctx, o, codes("ABCD-1234-EFGH-5678"))
	require.NoError(t, err)

	got, err := s.GetOrderByCode(ctx, " abcd-1234-efgh-5678 ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = s.GetOrderByCode(ctx, "ZZZZ-ZZZZ-ZZZZ-ZZZZ")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdateOrderStatusComparesAndSets(t *testing.T) {
	s, ctx := setup(t)
	o := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	_, err := s.InsertOrder(ctx, o, codes("ABCD-1234-EFGH-5678"))
	require.NoError(t, err)

	carrier, tracking := "Yurtici", "TRK123"
	ok, err := s.UpdateOrderStatus(ctx, o.ID, models.StatusPreparing, models.StatusShipped,
		&models.Shipping{Company: &carrier, TrackingNumber: &tracking})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusPreparing, models.StatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusShipped, models.StatusShipped, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, got.Status)
	assert.Equal(t, "Yurtici", got.ShippingCompany.String)
	assert.Equal(t, "TRK123", got.TrackingNumber.String)
}

func TestCountOrdersByStatus(t *testing.T) {
	s, ctx := setup(t)
	for i, code := range []string{"AAAA-AAAA-AAAA-AAAA", "BBBB-BBBB-BBBB-BBBB", "CCCC-CCCC-CCCC-CCCC"} {
		o := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
		_, err := s.InsertOrder(ctx, o, codes(code))
		require.NoError(t, err)
		if i == 0 {
			_, err = s.UpdateOrderStatus(ctx, o.ID, models.StatusPreparing, models.StatusShipped, nil)
			require.NoError(t, err)
		}
	}

	counts, err := s.CountOrdersByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[models.StatusPreparing])
	assert.Equal(t, 1, counts[models.StatusShipped])
	assert.Zero(t, counts[models.StatusDelivered])
}

func TestSetShippingField(t *testing.T) {
	s, ctx := setup(t)
	o := &models.Order{Items: models.LineItems{}, TotalPrice: decimal.Zero, Status: models.StatusPreparing}
	_, err := s.InsertOrder(ctx, o, codes("ABCD-1234-EFGH-5678"))
	require.NoError(t, err)

	require.NoError(t, s.SetShippingField(ctx, o.ID, models.TrackingNumberField, "TRK9"))
	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "TRK9", got.TrackingNumber.String)

	require.NoError(t, s.SetShippingField(ctx, o.ID, models.TrackingNumberField, " "))
	got, err = s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, got.TrackingNumber.Valid)

	err = s.SetShippingField(ctx, o.ID, models.ShippingField("status"), "x")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	err = s.SetShippingField(ctx, o.ID+1, models.ShippingCompanyField, "x")
	assert.True(t, apperr.IsNotFound(err))
}

func TestListActiveCampaignsHonorsWindow(t *testing.T) {
	s, ctx := setup(t)
	now := time.Now().UTC()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)

	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{Title: "open", Active: true}))
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{Title: "running", Active: true, StartsAt: &past, EndsAt: &future}))
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{Title: "upcoming", Active: true, StartsAt: &future}))
	require.NoError(t, s.CreateCampaign(ctx, &models.Campaign{Title: "off", Active: false}))

	active, err := s.ListActiveCampaigns(ctx, now)
	require.NoError(t, err)
	titles := []string{}
	for _, c := range active {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"open", "running"}, titles)

	assert.True(t, apperr.IsNotFound(s.DeleteCampaign(ctx, 999)))
}

func TestUsersWishlistAndReviews(t *testing.T) {
	s, ctx := setup(t)
	p := seedProduct(t, s, "Kibble", "dog", "", "10", 2)

	u := &models.User{Role: models.RoleCustomer, Email: "Ada@Example.com", PasswordHash: "x", FullName: "Ada"}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.Equal(t, "ada@example.com", u.Email)

	dup := &models.User{Role: models.RoleCustomer, Email: "ada@example.com", PasswordHash: "y"}
	assert.Equal(t, apperr.Conflict, apperr.KindOf(s.CreateUser(ctx, dup)))

	byEmail, err := s.GetUserByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	require.NoError(t, s.AddToWishlist(ctx, u.ID, p.ID))
	require.NoError(t, s.AddToWishlist(ctx, u.ID, p.ID))
	items, err := s.ListWishlist(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kibble", items[0].Name)
	require.NoError(t, s.RemoveFromWishlist(ctx, u.ID, p.ID))
	items, err = s.ListWishlist(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	review := &models.Review{ProductID: p.ID, UserID: u.ID, Rating: 5, Comment: "loved it"}
	require.NoError(t, s.CreateReview(ctx, review))
	assert.Equal(t, "Ada", review.UserName)

	again := &models.Review{ProductID: p.ID, UserID: u.ID, Rating: 1}
	assert.Equal(t, apperr.Conflict, apperr.KindOf(s.CreateReview(ctx, again)))

	reviews, err := s.ListReviews(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestNewsletterKeepsOneActiveRowPerEmail(t *testing.T) {
	s, ctx := setup(t)

	require.NoError(t, s.Subscribe(ctx, "a@example.com"))
	require.NoError(t, s.Subscribe(ctx, "A@example.com"))
	require.NoError(t, s.Subscribe(ctx, "b@example.com"))

	emails, err := s.ActiveSubscribers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)

	ok, err := s.Unsubscribe(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Unsubscribe(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Subscribe(ctx, "a@example.com"))
	emails, err = s.ActiveSubscribers(ctx)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
}

func TestMessagesAndNotifications(t *testing.T) {
	s, ctx := setup(t)

	m := &models.Message{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Body: "Do you ship?"}
	require.NoError(t, s.CreateMessage(ctx, m))
	require.NoError(t, s.MarkMessageRead(ctx, m.ID))
	unread, err := s.ListMessages(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	require.NoError(t, s.CreateNotification(ctx, "low_stock", "Kibble is low", ""))
	list, err := s.ListNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Link.Valid)
	require.NoError(t, s.MarkNotificationRead(ctx, list[0].ID))

	err = s.MarkNotificationRead(ctx, 999)
	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.NotFound, appErr.Kind)
}
