package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/infrastructure/storage/postgres"
)

var productColumns = postgres.ExtractDBColumns[catalog.Product]()

// ProductRepo implements catalog.ProductRepository.
type ProductRepo struct {
	baseRepo
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{baseRepo: newBaseRepo(txm)}
}

func (r *ProductRepo) Get(ctx context.Context, productID id.ID) (*catalog.Product, error) {
	var p catalog.Product
	q := r.builder.Select(productColumns...).From("products").Where(squirrel.Eq{"id": productID})
	if err := r.get(ctx, &p, q, "product", productID); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetMany returns the known products among productIDs, in id order.
func (r *ProductRepo) GetMany(ctx context.Context, productIDs []id.ID) ([]catalog.Product, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var products []catalog.Product
	q := r.builder.Select(productColumns...).From("products").Where(squirrel.Eq{"id": productIDs}).OrderBy("id")
	if err := r.selectAll(ctx, &products, q); err != nil {
		return nil, err
	}
	return products, nil
}

var _ catalog.ProductRepository = (*ProductRepo)(nil)
