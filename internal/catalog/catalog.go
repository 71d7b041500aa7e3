// Package catalog serves product listings, search and stock figures through
// the read cache, and performs admin product writes that invalidate it.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/cache"
	"github.com/01moynul/pawshop-golang/internal/models"
	"github.com/01moynul/pawshop-golang/internal/notify"
	"github.com/01moynul/pawshop-golang/internal/store"
)

// Sort orders accepted by List.
const (
	SortName      = "name"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

const searchLimit = 50

type Store interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByCategory(ctx context.Context, f store.ProductFilter) ([]models.Product, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]models.Product, error)
	Brands(ctx context.Context, category string) ([]string, error)
	ListActiveCampaigns(ctx context.Context, now time.Time) ([]models.Campaign, error)
	StockStats(ctx context.Context) (models.StockStats, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) (string, error)
	DeleteProduct(ctx context.Context, id int64) (string, error)
	AdjustStock(ctx context.Context, id int64, delta int) (store.StockLevel, error)
}

// TTLs per class of cached read.
type TTLs struct {
	Catalog   time.Duration
	Stock     time.Duration
	Campaigns time.Duration
}

type Service struct {
	store    Store
	cache    *cache.Cache
	notifier notify.Notifier
	ttl      TTLs
	now      func() time.Time
}

func NewService(s Store, c *cache.Cache, n notify.Notifier, ttl TTLs) *Service {
	return &Service{store: s, cache: c, notifier: n, ttl: ttl, now: time.Now}
}

// Filter is a catalog query. Category is required; the rest narrow it.
type Filter struct {
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SubTag   string
	MainTag  string
	Sort     string
}

type Listing struct {
	Category string           `json:"category"`
	Products []models.Product `json:"products"`
	Brands   []string         `json:"brands"`
}

// List runs the store pass (category, brand, price; cached per tuple), then
// the sub-tag and main-tag pass, then sorts.
func (s *Service) List(ctx context.Context, f Filter) (*Listing, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	args := []interface{}{f.Category, f.Brand, decimalArg(f.MinPrice), decimalArg(f.MaxPrice)}
	products, err := cache.Memoize(ctx, s.cache, cache.OpCategoryListing, args, s.ttl.Catalog,
		func(ctx context.Context) ([]models.Product, error) {
			return s.store.ListProductsByCategory(ctx, store.ProductFilter{
				Category: f.Category,
				Brand:    f.Brand,
				MinPrice: f.MinPrice,
				MaxPrice: f.MaxPrice,
			})
		})
	if err != nil {
		return nil, err
	}

	brands, err := s.Brands(ctx, f.Category)
	if err != nil {
		return nil, err
	}

	out := filterTags(products, f.SubTag, f.MainTag)
	sortProducts(out, f.Sort)
	return &Listing{Category: f.Category, Products: out, Brands: brands}, nil
}

func (f *Filter) validate() error {
	f.Category = strings.TrimSpace(f.Category)
	f.Brand = strings.TrimSpace(f.Brand)
	f.SubTag = strings.TrimSpace(f.SubTag)
	f.MainTag = strings.TrimSpace(f.MainTag)

	if f.Category == "" {
		return apperr.Invalid("category", "choose a category first")
	}
	switch f.Sort {
	case "", SortName, SortPriceAsc, SortPriceDesc, SortNewest:
	default:
		return apperr.Invalid("sort", "unknown sort order")
	}
	if f.MinPrice != nil && f.MinPrice.IsNegative() {
		return apperr.Invalid("min_price", "must not be negative")
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return apperr.Invalid("max_price", "must not be below min_price")
	}
	return nil
}

// Brands lists the brands available in category.
func (s *Service) Brands(ctx context.Context, category string) ([]string, error) {
	return cache.Memoize(ctx, s.cache, cache.OpBrands, []interface{}{category}, s.ttl.Catalog,
		func(ctx context.Context) ([]string, error) {
			return s.store.Brands(ctx, category)
		})
}

func (s *Service) Search(ctx context.Context, q string) ([]models.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperr.Invalid("q", "search term is required")
	}
	return s.store.SearchProducts(ctx, q, searchLimit)
}

func (s *Service) Product(ctx context.Context, id int64) (*models.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *Service) AllProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) ActiveCampaigns(ctx context.Context) ([]models.Campaign, error) {
	return cache.Memoize(ctx, s.cache, cache.OpCampaigns, nil, s.ttl.Campaigns,
		func(ctx context.Context) ([]models.Campaign, error) {
			return s.store.ListActiveCampaigns(ctx, s.now())
		})
}

// CampaignsChanged drops the cached campaign list.
func (s *Service) CampaignsChanged() {
	s.cache.Invalidate(cache.OpCampaigns)
}

func (s *Service) StockStats(ctx context.Context) (models.StockStats, error) {
	return cache.Memoize(ctx, s.cache, cache.OpStockStats, nil, s.ttl.Stock, s.store.StockStats)
}

func (s *Service) LowStock(ctx context.Context) ([]models.Product, error) {
	return cache.Memoize(ctx, s.cache, cache.OpLowStock, nil, s.ttl.Stock, s.store.ListLowStock)
}

func filterTags(products []models.Product, subTag, mainTag string) []models.Product {
	out := make([]models.Product, 0, len(products))
	main := strings.ToLower(mainTag)
	for _, p := range products {
		if subTag != "" && !hasTag(p.Subcategory, subTag) {
			continue
		}
		if main != "" && !mentions(p, main) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasTag(tags models.Tags, want string) bool {
	for _, tag := range tags {
		if strings.EqualFold(tag, want) {
			return true
		}
	}
	return false
}

// mentions reports whether the lower-cased term appears in the product's
// name or any of its sub-tags.
func mentions(p models.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	for _, tag := range p.Subcategory {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func sortProducts(products []models.Product, order string) {
	var less func(a, b models.Product) bool
	switch order {
	case SortName:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortNewest:
		less = func(a, b models.Product) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID > b.ID
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

func decimalArg(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// ProductInput is the admin-editable part of a product.
type ProductInput struct {
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Image             string          `json:"image"`
	Category          string          `json:"category"`
	Subcategory       []string        `json:"subcategory"`
	Description       string          `json:"description"`
	Brand             string          `json:"brand"`
	Stock             int             `json:"stock"`
	LowStockThreshold *int            `json:"lowStockThreshold"`
}

func (in ProductInput) product() (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return nil, apperr.Invalid("name", "name is required")
	case in.Price.IsNegative():
		return nil, apperr.Invalid("price", "price must not be negative")
	case strings.TrimSpace(in.Category) == "":
		return nil, apperr.Invalid("category", "category is required")
	case in.Stock < 0:
		return nil, apperr.Invalid("stock", "stock must not be negative")
	case in.LowStockThreshold != nil && *in.LowStockThreshold < 0:
		return nil, apperr.Invalid("lowStockThreshold", "threshold must not be negative")
	}

	threshold := models.DefaultLowStockThreshold
	if in.LowStockThreshold != nil {
		threshold = *in.LowStockThreshold
	}
	tags := models.Tags{}
	for _, tag := range in.Subcategory {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return &models.Product{
		Name:              name,
		Slug:              slug.Make(name),
		Price:             in.Price,
		Image:             strings.TrimSpace(in.Image),
		Category:          strings.TrimSpace(in.Category),
		Subcategory:       tags,
		Description:       strings.TrimSpace(in.Description),
		Brand:             strings.TrimSpace(in.Brand),
		StockQuantity:     in.Stock,
		LowStockThreshold: threshold,
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	err = s.store.CreateProduct(ctx, p)
	s.productsChanged(err, p.Category)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"product": p.ID, "category": p.Category}).Info("product created")
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*models.Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	p.ID = id
	previous, err := s.store.UpdateProduct(ctx, p)
	s.productsChanged(err, previous, p.Category)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	category, err := s.store.DeleteProduct(ctx, id)
	s.productsChanged(err, category)
	if err != nil {
		return err
	}
	log.WithField("product", id).Info("product deleted")
	return nil
}

// Restock adds delta units (negative to write stock off, clamped at zero).
func (s *Service) Restock(ctx context.Context, id int64, delta int) (store.StockLevel, error) {
	if delta == 0 {
		return store.StockLevel{}, apperr.Invalid("delta", "delta must not be zero")
	}
	level, err := s.store.AdjustStock(ctx, id, delta)
	s.productsChanged(err, level.Category)
	if err != nil {
		return level, err
	}
	if delta < 0 && level.Low() {
		s.notifier.NotifyLowStock(level.Name, level.Quantity, level.Threshold)
	}
	return level, nil
}

// productsChanged invalidates what a product write in categories could have
// changed. When the write failed in an unknown state, or a category is not
// known, everything is dropped.
func (s *Service) productsChanged(err error, categories ...string) {
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.Validation, apperr.NotFound, apperr.Conflict:
			return
		}
		log.WithError(errors.Cause(err)).Warn("product write failed, clearing read cache")
		s.cache.InvalidateAll()
		return
	}

	for _, c := range categories {
		if c == "" {
			s.cache.InvalidateAll()
			return
		}
	}
	for _, c := range categories {
		s.cache.Invalidate(cache.OpCategoryListing, c)
		s.cache.Invalidate(cache.OpBrands, c)
	}
	s.cache.InvalidateOps(cache.OpStockStats, cache.OpLowStock)
}
