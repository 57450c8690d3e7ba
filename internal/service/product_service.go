package service

import (
	"context"
	"fmt"
	"strings"

	"balmar-shop/internal/broker"
	"balmar-shop/internal/models"
	"balmar-shop/internal/store"
	"balmar-shop/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService manages listings
type ProductService struct {
	products  ProductStore
	users     UserStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(products ProductStore, users UserStore, publisher EventPublisher) *ProductService {
	return &ProductService{
		products:  products,
		users:     users,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ProductInput describes a new listing
type ProductInput struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Size        string   `json:"size"`
	Condition   string   `json:"condition"`
	Price       int64    `json:"price" binding:"required"`
	Images      []string `json:"images"`
	Location    string   `json:"location"`
}

// ProductUpdate carries listing changes; nil means unchanged
type ProductUpdate struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Size        *string  `json:"size"`
	Condition   *string  `json:"condition"`
	Price       *int64   `json:"price"`
	Images      []string `json:"images"`
	Location    *string  `json:"location"`
}

// ListAvailable returns unsold products, newest first
func (s *ProductService) ListAvailable(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.ListAvailable")
	defer span.End()

	return s.products.ListAvailableProducts(ctx, filter)
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	return s.products.GetProductByID(ctx, productID)
}

// CreateProduct lists a new item for sellerID and notifies followers through PRODUCT_LISTED
func (s *ProductService) CreateProduct(ctx context.Context, sellerID string, in *ProductInput) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}

	seller, err := s.users.GetUserByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New().String(),
		SellerID:    seller.ID,
		Title:       title,
		Description: in.Description,
		Category:    in.Category,
		Size:        in.Size,
		Condition:   in.Condition,
		Price:       in.Price,
		Images:      in.Images,
		Location:    in.Location,
	}
	if product.Location == "" {
		product.Location = seller.Location
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to create product: %w", err))
	}

	s.logger.Info("Product listed",
		zap.String("product_id", product.ID),
		zap.String("seller_id", seller.ID),
		zap.Int64("price", product.Price))

	event := &models.ProductListedEvent{
		BaseEvent:  broker.NewBaseEvent(models.EventTypeProductListed),
		ProductID:  product.ID,
		SellerID:   seller.ID,
		SellerName: seller.Name,
		Title:      product.Title,
		Price:      product.Price,
	}
	if err := s.publisher.PublishProductListed(ctx, event); err != nil {
		s.logger.Error("Failed to publish ProductListed event", zap.Error(err))
	}

	return product, nil
}

// UpdateProduct edits a listing owned by sellerID. Sold items cannot be repriced.
func (s *ProductService) UpdateProduct(ctx context.Context, productID, sellerID string, upd *ProductUpdate) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		product.Title = title
	}
	if upd.Price != nil && *upd.Price != product.Price {
		if product.IsSold {
			return nil, fmt.Errorf("cannot reprice: %w", ErrProductSold)
		}
		if *upd.Price <= 0 {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		product.Price = *upd.Price
	}
	setIfPresent(&product.Description, upd.Description)
	setIfPresent(&product.Category, upd.Category)
	setIfPresent(&product.Size, upd.Size)
	setIfPresent(&product.Condition, upd.Condition)
	setIfPresent(&product.Location, upd.Location)
	if upd.Images != nil {
		product.Images = upd.Images
	}

	if err := s.products.UpdateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteProduct removes an unsold listing owned by sellerID
func (s *ProductService) DeleteProduct(ctx context.Context, productID, sellerID string) error {
	product, err := s.ownedProduct(ctx, productID, sellerID)
	if err != nil {
		return err
	}
	if product.IsSold {
		return fmt.Errorf("cannot delete: %w", ErrProductSold)
	}
	if err := s.products.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.Info("Product deleted", zap.String("product_id", productID))
	return nil
}

func (s *ProductService) ownedProduct(ctx context.Context, productID, sellerID string) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != sellerID {
		return nil, ErrForbidden
	}
	return product, nil
}

func setIfPresent(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
