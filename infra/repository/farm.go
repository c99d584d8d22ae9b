package repository

import (
	"context"

	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type farmRepository struct {
	db *gorm.DB
}

// NewFarmRepository creates a GORM-backed farm repository.
func NewFarmRepository(db *gorm.DB) repository.FarmRepository {
	return &farmRepository{db: db}
}

func farmFromModel(m *Farm) *farm.Farm {
	return &farm.Farm{ID: m.ID, Name: m.Name, OwnerID: m.OwnerID, CreatedAt: m.CreatedAt}
}

func (r *farmRepository) Create(ctx context.Context, f *farm.Farm) error {
	m := &Farm{ID: f.ID, Name: f.Name, OwnerID: f.OwnerID, CreatedAt: f.CreatedAt}
	return MapGormErrorToDomain(r.db.WithContext(ctx).Create(m).Error)
}

func (r *farmRepository) Get(ctx context.Context, id uuid.UUID) (*farm.Farm, error) {
	var m Farm
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, farm.ErrFarmNotFound)
	}
	return farmFromModel(&m), nil
}

func (r *farmRepository) find(q *gorm.DB) ([]*farm.Farm, error) {
	var rows []Farm
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*farm.Farm, 0, len(rows))
	for i := range rows {
		out = append(out, farmFromModel(&rows[i]))
	}
	return out, nil
}

func (r *farmRepository) List(ctx context.Context) ([]*farm.Farm, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *farmRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*farm.Farm, error) {
	return r.find(r.db.WithContext(ctx).Where("owner_id = ?", ownerID))
}

func (r *farmRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&Farm{}).Order("created_at, id").Pluck("id", &ids).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return ids, nil
}

// Delete removes unsold products first; animals cascade and sold products
// keep their row with farm_id set to NULL.
func (r *farmRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("farm_id = ? AND is_sold = ?", id, false).Delete(&Product{}).Error; err != nil {
		return MapGormErrorToDomain(err)
	}
	res := db.Delete(&Farm{}, "id = ?", id)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return farm.ErrFarmNotFound
	}
	return nil
}
