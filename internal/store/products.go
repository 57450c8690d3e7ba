package store

import (
	"context"
	"fmt"
	"strings"

	"balmar-shop/internal/models"
)

// DefaultListLimit caps product listings
const DefaultListLimit = 100

// ProductFilter narrows the available product listing
type ProductFilter struct {
	Category string
	SellerID string
	Search   string
	MaxPrice int64
	Limit    int
}

// CreateProduct inserts a new listing
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (id, seller_id, title, description, category, size, condition,
			price, images, location, is_sold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if p.Images == nil {
		p.Images = []string{}
	}
	return s.db.GetContext(ctx, p, query,
		p.ID, p.SellerID, p.Title, p.Description, p.Category, p.Size, p.Condition,
		p.Price, p.Images, p.Location, p.IsSold)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.db.GetContext(ctx, &p, "SELECT * FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

// ListAvailableProducts returns unsold products, newest first
func (s *Store) ListAvailableProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	conds := []string{"is_sold = FALSE"}
	args := []interface{}{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.SellerID != "" {
		add("seller_id = $%d", f.SellerID)
	}
	if f.Search != "" {
		add("title ILIKE $%d", "%"+f.Search+"%")
	}
	if f.MaxPrice > 0 {
		add("price <= $%d", f.MaxPrice)
	}

	limit := f.Limit
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		"SELECT * FROM products WHERE %s ORDER BY created_at DESC LIMIT $%d",
		strings.Join(conds, " AND "), len(args))

	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// UpdateProduct updates the listing fields of an unsold product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET title = $1, description = $2, category = $3, size = $4, condition = $5,
			price = $6, images = $7, location = $8, updated_at = NOW()
		WHERE id = $9`

	res, err := s.db.ExecContext(ctx, query,
		p.Title, p.Description, p.Category, p.Size, p.Condition,
		p.Price, p.Images, p.Location, p.ID)
	return expectOneRow(res, err, "product", p.ID)
}

// DeleteProduct removes a product. Returns ErrInUse while conversations or
// transactions still point at it.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return expectOneRow(res, referenced(err, "product", id), "product", id)
}
