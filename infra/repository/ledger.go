package repository

import (
	"context"

	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a GORM-backed ledger repository.
func NewLedgerRepository(db *gorm.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	m := &LedgerEntry{
		ID:        e.ID,
		UserID:    e.UserID,
		Type:      string(e.Type),
		Amount:    e.Amount.Cents(),
		Reference: e.Reference,
		CreatedAt: e.CreatedAt,
	}
	return MapGormErrorToDomain(r.db.WithContext(ctx).Create(m).Error)
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	var rows []LedgerEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*ledger.Entry, 0, len(rows))
	for _, m := range rows {
		out = append(out, &ledger.Entry{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      ledger.Type(m.Type),
			Amount:    money.FromCents(m.Amount),
			Reference: m.Reference,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

type typeTotal struct {
	Type  string
	Total int64
}

func (r *ledgerRepository) TotalsByUser(ctx context.Context, userID uuid.UUID) (map[ledger.Type]money.Money, error) {
	var rows []typeTotal
	err := r.db.WithContext(ctx).Model(&LedgerEntry{}).
		Select("type, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ?", userID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	totals := make(map[ledger.Type]money.Money, len(rows))
	for _, row := range rows {
		totals[ledger.Type(row.Type)] = money.FromCents(row.Total)
	}
	return totals, nil
}
