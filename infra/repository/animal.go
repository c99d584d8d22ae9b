package repository

import (
	"context"

	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type animalRepository struct {
	db *gorm.DB
}

// NewAnimalRepository creates a GORM-backed animal repository.
func NewAnimalRepository(db *gorm.DB) repository.AnimalRepository {
	return &animalRepository{db: db}
}

func animalToModel(a *animal.Animal) *Animal {
	return &Animal{
		ID:                        a.ID,
		FarmID:                    a.FarmID,
		Species:                   string(a.Species),
		PurchasedAt:               a.PurchasedAt,
		PurchasePrice:             a.PurchasePrice.Cents(),
		LifeSpanInDays:            a.LifeSpanInDays,
		RemainingLifeDays:         a.RemainingLifeDays,
		ProductionIntervalMinutes: a.ProductionIntervalMinutes,
		LastProductionAt:          a.LastProductionAt,
		IsAlive:                   a.IsAlive,
	}
}

func animalFromModel(m *Animal) *animal.Animal {
	return &animal.Animal{
		ID:                        m.ID,
		FarmID:                    m.FarmID,
		Species:                   animal.Species(m.Species),
		PurchasedAt:               m.PurchasedAt,
		PurchasePrice:             money.FromCents(m.PurchasePrice),
		LifeSpanInDays:            m.LifeSpanInDays,
		RemainingLifeDays:         m.RemainingLifeDays,
		ProductionIntervalMinutes: m.ProductionIntervalMinutes,
		LastProductionAt:          m.LastProductionAt,
		IsAlive:                   m.IsAlive,
	}
}

func (r *animalRepository) Create(ctx context.Context, a *animal.Animal) error {
	return MapGormErrorToDomain(r.db.WithContext(ctx).Create(animalToModel(a)).Error)
}

func (r *animalRepository) Get(ctx context.Context, id uuid.UUID) (*animal.Animal, error) {
	var m Animal
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, animal.ErrAnimalNotFound)
	}
	return animalFromModel(&m), nil
}

func (r *animalRepository) find(q *gorm.DB) ([]*animal.Animal, error) {
	var rows []Animal
	if err := q.Order("purchased_at, id").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*animal.Animal, 0, len(rows))
	for i := range rows {
		out = append(out, animalFromModel(&rows[i]))
	}
	return out, nil
}

func (r *animalRepository) ListByFarm(ctx context.Context, farmID uuid.UUID) ([]*animal.Animal, error) {
	return r.find(r.db.WithContext(ctx).Where("farm_id = ?", farmID))
}

func (r *animalRepository) ListAliveByFarm(ctx context.Context, farmID uuid.UUID) ([]*animal.Animal, error) {
	return r.find(r.db.WithContext(ctx).Where("farm_id = ? AND is_alive = ?", farmID, true))
}

type speciesCount struct {
	Species string
	Count   int
}

func (r *animalRepository) CountAliveBySpecies(ctx context.Context, ownerID uuid.UUID) (map[animal.Species]int, error) {
	var rows []speciesCount
	err := r.db.WithContext(ctx).Model(&Animal{}).
		Select("animals.species AS species, COUNT(*) AS count").
		Joins("JOIN farms ON farms.id = animals.farm_id").
		Where("farms.owner_id = ? AND animals.is_alive = ?", ownerID, true).
		Group("animals.species").
		Scan(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	counts := make(map[animal.Species]int, len(rows))
	for _, row := range rows {
		counts[animal.Species(row.Species)] = row.Count
	}
	return counts, nil
}

func (r *animalRepository) Update(ctx context.Context, a *animal.Animal) error {
	res := r.db.WithContext(ctx).Model(&Animal{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"remaining_life_days": a.RemainingLifeDays,
			"last_production_at":  a.LastProductionAt,
			"is_alive":            a.IsAlive,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return animal.ErrAnimalNotFound
	}
	return nil
}

// Delete removes the animal; its products keep their row with animal_id NULL.
func (r *animalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&Animal{}, "id = ?", id)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return animal.ErrAnimalNotFound
	}
	return nil
}
