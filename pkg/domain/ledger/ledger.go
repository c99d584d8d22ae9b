// Package ledger models the append-only record of balance changes.
package ledger

import (
	"time"

	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
)

// Type classifies a ledger entry. The type decides the sign.
type Type string

const (
	Deposit        Type = "Deposit"
	Withdrawal     Type = "Withdrawal"
	PurchaseAnimal Type = "PurchaseAnimal"
	SellAnimal     Type = "SellAnimal"
	SellProduct    Type = "SellProduct"
)

// IsCredit reports whether entries of this type add to the balance.
func (t Type) IsCredit() bool {
	switch t {
	case Deposit, SellAnimal, SellProduct:
		return true
	}
	return false
}

// Entry is one balance change. Amount is a non-negative magnitude.
type Entry struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"userId"`
	Type      Type        `json:"type"`
	Amount    money.Money `json:"amount"`
	Reference string      `json:"reference,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// New creates an entry for userID.
func New(userID uuid.UUID, t Type, amount money.Money, reference string, now time.Time) *Entry {
	return &Entry{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      t,
		Amount:    amount,
		Reference: reference,
		CreatedAt: now,
	}
}

// Signed returns the amount with the sign implied by the type.
func (e *Entry) Signed() money.Money {
	if e.Type.IsCredit() {
		return e.Amount
	}
	return -e.Amount
}

// Balance folds entries into the balance they imply.
func Balance(entries []*Entry) money.Money {
	var total money.Money
	for _, e := range entries {
		total = total.Add(e.Signed())
	}
	return total
}

// BalanceFromTotals folds per-type magnitude totals into a balance.
func BalanceFromTotals(totals map[Type]money.Money) money.Money {
	var total money.Money
	for t, amount := range totals {
		if t.IsCredit() {
			total = total.Add(amount)
		} else {
			total = total.Sub(amount)
		}
	}
	return total
}
