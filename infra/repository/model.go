package repository

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user record in the database.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"size:100;uniqueIndex;not null"`
	Role         string    `gorm:"size:16;not null"`
	Balance      int64     `gorm:"not null"`
	PasswordHash []byte    `gorm:"type:bytea;not null"`
	PasswordSalt []byte    `gorm:"type:bytea;not null"`
	Version      int64     `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }

// RefreshToken represents a refresh token digest.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	TokenHash string    `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

// Farm represents a farm record.
type Farm struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
}

func (Farm) TableName() string { return "farms" }

// Animal represents an animal record.
type Animal struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FarmID                    uuid.UUID `gorm:"type:uuid;not null;index"`
	Species                   string    `gorm:"size:32;not null"`
	PurchasedAt               time.Time `gorm:"not null"`
	PurchasePrice             int64     `gorm:"not null"`
	LifeSpanInDays            int       `gorm:"not null"`
	RemainingLifeDays         int       `gorm:"not null"`
	ProductionIntervalMinutes int       `gorm:"not null"`
	LastProductionAt          *time.Time
	IsAlive                   bool `gorm:"not null"`
}

func (Animal) TableName() string { return "animals" }

// Product represents a product batch. FarmID and AnimalID become NULL when
// the parent row is deleted.
type Product struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	FarmID    *uuid.UUID `gorm:"type:uuid;index"`
	AnimalID  *uuid.UUID `gorm:"type:uuid;index"`
	Type      string     `gorm:"size:32;not null"`
	Quantity  int        `gorm:"not null"`
	UnitPrice int64      `gorm:"not null"`
	CreatedAt time.Time
	IsSold    bool `gorm:"not null"`
	SoldAt    *time.Time
	SoldTotal int64 `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

// LedgerEntry represents an append-only balance change.
type LedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string    `gorm:"size:32;not null"`
	Amount    int64     `gorm:"not null"`
	Reference string    `gorm:"size:128"`
	CreatedAt time.Time
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
