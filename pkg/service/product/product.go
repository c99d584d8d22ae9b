// Package product sells produced goods.
package product

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/events"
	domainledger "github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/eventbus"
	"github.com/barncase/barn/pkg/money"
	"github.com/barncase/barn/pkg/repository"
	ledgersvc "github.com/barncase/barn/pkg/service/ledger"
	"github.com/google/uuid"
)

// Selection picks what to sell: either ProductIDs on FarmID, or Quantity
// units of Type taken oldest first across all the seller's farms.
type Selection struct {
	FarmID     uuid.UUID
	ProductIDs []uuid.UUID
	Type       product.Type
	Quantity   int
}

// ByIDs reports whether the selection names explicit products.
func (s Selection) ByIDs() bool {
	return len(s.ProductIDs) > 0
}

// Sale is the outcome of SellProducts.
type Sale struct {
	Total      money.Money `json:"total"`
	Units      int         `json:"units"`
	ProductIDs []uuid.UUID `json:"productIds"`
}

type Service struct {
	uow    repository.UnitOfWork
	bus    eventbus.Bus
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, bus eventbus.Bus, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		bus:    bus,
		logger: logger.With("service", "product"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SellProducts marks the selected products sold and credits userID with
// their total in one unit of work. If the selection cannot be satisfied in
// full nothing changes and domain.ErrInsufficientQuantity is returned.
func (s *Service) SellProducts(ctx context.Context, userID uuid.UUID, sel Selection) (*Sale, error) {
	log := s.logger.With("context", "SellProducts", "userID", userID, "byIDs", sel.ByIDs())
	log.Debug("SellProducts called")

	if !sel.ByIDs() {
		if _, err := product.ParseType(string(sel.Type)); err != nil {
			return nil, err
		}
		if sel.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive: %w", domain.ErrValidation)
		}
	}

	now := s.now()
	var sale *Sale
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		products, err := uow.ProductRepository()
		if err != nil {
			return fmt.Errorf("failed to get product repository: %w", err)
		}
		if sel.ByIDs() {
			sale, err = s.sellByIDs(ctx, uow, products, userID, sel, now)
		} else {
			sale, err = s.sellFIFO(ctx, products, userID, sel, now)
		}
		if err != nil {
			return err
		}

		users, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err := users.Get(ctx, userID)
		if err != nil {
			return err
		}
		_, err = ledgersvc.Apply(ctx, uow, u, domainledger.SellProduct, sale.Total,
			fmt.Sprintf("%d products", len(sale.ProductIDs)), now)
		return err
	})
	if err != nil {
		log.Error("SellProducts failed", "error", err)
		return nil, err
	}
	log.Info("SellProducts successful", "total", sale.Total, "units", sale.Units)

	if err := s.bus.Emit(ctx, &events.ProductsSold{
		UserID:     userID,
		ProductIDs: sale.ProductIDs,
		Units:      sale.Units,
		Total:      sale.Total,
		At:         now,
	}); err != nil {
		log.Warn("failed to emit event", "type", events.EventTypeProductsSold, "error", err)
	}
	return sale, nil
}

func (s *Service) sellByIDs(
	ctx context.Context,
	uow repository.UnitOfWork,
	products repository.ProductRepository,
	userID uuid.UUID,
	sel Selection,
	now time.Time,
) (*Sale, error) {
	farms, err := uow.FarmRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get farm repository: %w", err)
	}
	f, err := farms.Get(ctx, sel.FarmID)
	if err != nil {
		return nil, err
	}
	if f.OwnerID != userID {
		return nil, domain.ErrForbidden
	}

	wanted := make(map[uuid.UUID]struct{}, len(sel.ProductIDs))
	for _, id := range sel.ProductIDs {
		wanted[id] = struct{}{}
	}
	found, err := products.GetMany(ctx, sel.ProductIDs)
	if err != nil {
		return nil, err
	}
	if len(found) != len(wanted) {
		return nil, domain.ErrInsufficientQuantity
	}
	for _, p := range found {
		if p.FarmID != sel.FarmID || p.IsSold {
			return nil, domain.ErrInsufficientQuantity
		}
	}

	sale := &Sale{ProductIDs: make([]uuid.UUID, 0, len(found))}
	for _, p := range found {
		total := p.Total()
		if err := p.MarkSold(total, now); err != nil {
			return nil, err
		}
		if err := products.MarkSold(ctx, p); err != nil {
			return nil, err
		}
		sale.Total = sale.Total.Add(total)
		sale.Units += p.Quantity
		sale.ProductIDs = append(sale.ProductIDs, p.ID)
	}
	return sale, nil
}

func (s *Service) sellFIFO(
	ctx context.Context,
	products repository.ProductRepository,
	userID uuid.UUID,
	sel Selection,
	now time.Time,
) (*Sale, error) {
	batch, _ := product.BatchFor(sel.Type)
	unsold, err := products.ListUnsoldByOwner(ctx, userID, sel.Type)
	if err != nil {
		return nil, err
	}
	available := 0
	for _, p := range unsold {
		available += p.Quantity
	}
	if available < sel.Quantity {
		return nil, domain.ErrInsufficientQuantity
	}

	sale := &Sale{}
	remaining := sel.Quantity
	for _, p := range unsold {
		if remaining == 0 {
			break
		}
		var rest *product.Product
		if p.Quantity > remaining {
			rest, err = p.Split(remaining)
			if err != nil {
				return nil, err
			}
		}
		total := batch.UnitPrice.Times(p.Quantity)
		if err := p.MarkSold(total, now); err != nil {
			return nil, err
		}
		if err := products.MarkSold(ctx, p); err != nil {
			return nil, err
		}
		if rest != nil {
			if err := products.Create(ctx, rest); err != nil {
				return nil, err
			}
		}
		remaining -= p.Quantity
		sale.Total = sale.Total.Add(total)
		sale.Units += p.Quantity
		sale.ProductIDs = append(sale.ProductIDs, p.ID)
	}
	return sale, nil
}
