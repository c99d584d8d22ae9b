package repository

import (
	"context"

	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a GORM-backed product repository.
func NewProductRepository(db *gorm.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func idOrNil(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func productToModel(p *product.Product) *Product {
	return &Product{
		ID:        p.ID,
		FarmID:    nullableID(p.FarmID),
		AnimalID:  nullableID(p.AnimalID),
		Type:      string(p.Type),
		Quantity:  p.Quantity,
		UnitPrice: p.UnitPrice.Cents(),
		CreatedAt: p.CreatedAt,
		IsSold:    p.IsSold,
		SoldAt:    p.SoldAt,
		SoldTotal: p.SoldTotal.Cents(),
	}
}

func productFromModel(m *Product) *product.Product {
	return &product.Product{
		ID:        m.ID,
		FarmID:    idOrNil(m.FarmID),
		AnimalID:  idOrNil(m.AnimalID),
		Type:      product.Type(m.Type),
		Quantity:  m.Quantity,
		UnitPrice: money.FromCents(m.UnitPrice),
		CreatedAt: m.CreatedAt,
		IsSold:    m.IsSold,
		SoldAt:    m.SoldAt,
		SoldTotal: money.FromCents(m.SoldTotal),
	}
}

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	return MapGormErrorToDomain(r.db.WithContext(ctx).Create(productToModel(p)).Error)
}

func (r *productRepository) find(q *gorm.DB) ([]*product.Product, error) {
	var rows []Product
	if err := q.Order("products.created_at, products.id").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*product.Product, 0, len(rows))
	for i := range rows {
		out = append(out, productFromModel(&rows[i]))
	}
	return out, nil
}

func (r *productRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]*product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(r.db.WithContext(ctx).Where("products.id IN ?", ids))
}

func (r *productRepository) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]*product.Product, error) {
	return r.find(r.db.WithContext(ctx).Where("products.farm_id = ?", farmID))
}

func (r *productRepository) ListUnsoldByOwner(ctx context.Context, ownerID uuid.UUID, t product.Type) ([]*product.Product, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN farms ON farms.id = products.farm_id").
		Where("farms.owner_id = ? AND products.type = ? AND products.is_sold = ?", ownerID, string(t), false)
	return r.find(q)
}

// MarkSold flips an unsold row to sold. Losing a race against another
// seller surfaces as product.ErrAlreadySold.
func (r *productRepository) MarkSold(ctx context.Context, p *product.Product) error {
	res := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ? AND is_sold = ?", p.ID, false).
		Updates(map[string]any{
			"is_sold":    true,
			"sold_at":    p.SoldAt,
			"sold_total": p.SoldTotal.Cents(),
			"quantity":   p.Quantity,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return product.ErrAlreadySold
	}
	return nil
}
