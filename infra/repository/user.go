package repository

import (
	"context"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a GORM-backed user repository.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func userToModel(u *user.User) *User {
	return &User{
		ID:           u.ID,
		Name:         u.Name,
		Role:         string(u.Role),
		Balance:      u.Balance.Cents(),
		PasswordHash: u.PasswordHash,
		PasswordSalt: u.PasswordSalt,
		Version:      u.Version,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m *User) *user.User {
	return &user.User{
		ID:           m.ID,
		Name:         m.Name,
		Role:         user.Role(m.Role),
		Balance:      money.FromCents(m.Balance),
		PasswordHash: m.PasswordHash,
		PasswordSalt: m.PasswordSalt,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	return MapGormErrorToDomain(r.db.WithContext(ctx).Create(userToModel(u)).Error)
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return userFromModel(&m), nil
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*user.User, error) {
	var m User
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&m).Error; err != nil {
		return nil, mapNotFound(err, user.ErrUserNotFound)
	}
	return userFromModel(&m), nil
}

func (r *userRepository) List(ctx context.Context, skip, take int) ([]*user.User, error) {
	var rows []User
	err := r.db.WithContext(ctx).
		Order("created_at, name").
		Offset(skip).
		Limit(take).
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*user.User, 0, len(rows))
	for i := range rows {
		out = append(out, userFromModel(&rows[i]))
	}
	return out, nil
}

func (r *userRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return ids, nil
}

// Update writes name, role and balance guarded by the version column.
func (r *userRepository) Update(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND version = ?", u.ID, u.Version).
		Updates(map[string]any{
			"name":       u.Name,
			"role":       string(u.Role),
			"balance":    u.Balance.Cents(),
			"version":    u.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	u.Version++
	u.UpdatedAt = now
	return nil
}

// Delete removes the user. Unsold inventory on the user's farms goes first;
// farms, animals, ledger rows and tokens cascade in the schema.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	err := db.Where("is_sold = ? AND farm_id IN (?)", false,
		db.Model(&Farm{}).Select("id").Where("owner_id = ?", id)).
		Delete(&Product{}).Error
	if err != nil {
		return MapGormErrorToDomain(err)
	}
	res := db.Delete(&User{}, "id = ?", id)
	if res.Error != nil {
		return MapGormErrorToDomain(res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrUserNotFound
	}
	return nil
}
