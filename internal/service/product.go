package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avelichko/storefront/internal/store"
	"github.com/google/uuid"
)

// ProductService defines the methods for managing catalog products.
type ProductService interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindAll returns all available products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error)

	// Create adds a new product to the system.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update modifies an existing product's details.
	// Returns ErrProductNotFound if no product exists with the given ID and version.
	Update(ctx context.Context, product ProductUpdateDto) (*ProductDto, error)

	// DeleteByID removes a product by its ID.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}

// Products implements ProductService on top of a ProductStore.
type Products struct {
	productStore store.ProductStore
}

// NewProductService creates a new instance of ProductService with the provided store.
func NewProductService(productStore store.ProductStore) *Products {
	return &Products{productStore: productStore}
}

// AgeRestrictionDto is the wire shape of a product's age policy.
// Required=false means the product imposes no constraint regardless of
// MinimumAge; internally such products carry no policy at all.
type AgeRestrictionDto struct {
	Required   bool  `json:"required"`
	MinimumAge int32 `json:"minimum_age" validate:"min=0"`
}

// ProductDto represents the data transfer object for a product.
// Version is read-only and used for optimistic concurrency control.
type ProductDto struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Price          int64              `json:"price"`
	Discount       int64              `json:"discount"`
	AgeRestriction *AgeRestrictionDto `json:"age_restriction,omitempty"`
	Version        int32              `json:"version"`
	CreatedAt      string             `json:"created_at"`
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name           string             `json:"name"        validate:"required,max=100"`
	Description    string             `json:"description" validate:"max=1000"`
	Price          int64              `json:"price"       validate:"min=0"`
	Discount       int64              `json:"discount"    validate:"min=0"`
	AgeRestriction *AgeRestrictionDto `json:"age_restriction,omitempty"`
}

// ProductUpdateDto represents the data transfer object for updating an existing product.
type ProductUpdateDto struct {
	ID             uuid.UUID          `json:"id"          validate:"required"`
	Name           string             `json:"name"        validate:"required,max=100"`
	Description    string             `json:"description" validate:"max=1000"`
	Price          int64              `json:"price"       validate:"min=0"`
	Discount       int64              `json:"discount"    validate:"min=0"`
	AgeRestriction *AgeRestrictionDto `json:"age_restriction,omitempty"`
	Version        int32              `json:"version"     validate:"required,min=1"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
func (s *Products) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.productStore.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toProductDto(product), nil
}

// FindAll retrieves a list of all products and returns them as ProductDtos.
func (s *Products) FindAll(ctx context.Context, offset, limit int32) ([]ProductDto, error) {
	products, err := s.productStore.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	productDtos := make([]ProductDto, len(products))
	for i := range products {
		productDtos[i] = *toProductDto(&products[i])
	}
	return productDtos, nil
}

// Create creates a new product and returns it as a ProductDto.
func (s *Products) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	created, err := s.productStore.Create(ctx, store.CreateProductParams{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Discount:    product.Discount,
		MinimumAge:  toMinimumAge(product.AgeRestriction),
	})
	if err != nil {
		return nil, err
	}
	return toProductDto(created), nil
}

// Update modifies an existing product's details and returns the updated product as a ProductDto.
func (s *Products) Update(ctx context.Context, product ProductUpdateDto) (*ProductDto, error) {
	updated, err := s.productStore.Update(ctx, store.UpdateProductParams{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Discount:    product.Discount,
		MinimumAge:  toMinimumAge(product.AgeRestriction),
		Version:     product.Version,
	})
	if err != nil {
		return nil, err
	}
	return toProductDto(updated), nil
}

// DeleteByID deletes a product by its ID.
func (s *Products) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	return s.productStore.DeleteByID(ctx, id, version)
}

// toMinimumAge collapses the wire policy into the stored form.
// A policy with Required=false is indistinguishable from no policy.
func toMinimumAge(r *AgeRestrictionDto) *int32 {
	if r == nil || !r.Required {
		return nil
	}
	age := r.MinimumAge
	return &age
}

// toProductDto converts a store.Product to a ProductDto.
func toProductDto(product *store.Product) *ProductDto {
	dto := &ProductDto{
		ID:          product.ID,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Discount:    product.Discount,
		Version:     product.Version,
		CreatedAt:   product.CreatedAt.Format(time.RFC3339),
	}
	if product.Restricted() {
		dto.AgeRestriction = &AgeRestrictionDto{Required: true, MinimumAge: *product.MinimumAge}
	}
	return dto
}
