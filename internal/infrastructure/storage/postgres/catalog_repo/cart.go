package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"storeops/internal/core/id"
	"storeops/internal/domain/catalog"
	"storeops/internal/infrastructure/storage/postgres"
)

// CartRepo implements catalog.CartRepository.
type CartRepo struct {
	baseRepo
}

// NewCartRepo creates a new cart repository.
func NewCartRepo(txm *postgres.TxManager) *CartRepo {
	return &CartRepo{baseRepo: newBaseRepo(txm)}
}

func (r *CartRepo) Items(ctx context.Context, customerID id.ID) ([]catalog.CartItem, error) {
	var items []catalog.CartItem
	q := r.builder.Select("product_id", "quantity").From("cart_items").
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("added_at")
	if err := r.selectAll(ctx, &items, q); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *CartRepo) Clear(ctx context.Context, customerID id.ID) error {
	if _, err := r.exec(ctx, r.builder.Delete("cart_items").Where(squirrel.Eq{"customer_id": customerID})); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

var _ catalog.CartRepository = (*CartRepo)(nil)
