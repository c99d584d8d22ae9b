package memory

import (
	"bytes"
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/animal"
	"github.com/barncase/barn/pkg/domain/farm"
	"github.com/barncase/barn/pkg/domain/ledger"
	"github.com/barncase/barn/pkg/domain/product"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/money"
	"github.com/google/uuid"
)

func compareID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

// --- users ---

type userRepository struct{ session }

func (r *userRepository) Create(_ context.Context, u *user.User) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[u.ID]; ok {
			return domain.ErrAlreadyExists
		}
		for _, existing := range t.users {
			if existing.Name == u.Name {
				return domain.ErrAlreadyExists
			}
		}
		t.users[u.ID] = *u
		return nil
	})
}

func (r *userRepository) Get(_ context.Context, id uuid.UUID) (*user.User, error) {
	var out *user.User
	err := r.read(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return user.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByName(_ context.Context, name string) (*user.User, error) {
	var out *user.User
	err := r.read(func(t *tables) error {
		for _, u := range t.users {
			if u.Name == name {
				out = &u
				return nil
			}
		}
		return user.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) List(_ context.Context, skip, take int) ([]*user.User, error) {
	var out []*user.User
	err := r.read(func(t *tables) error {
		all := make([]user.User, 0, len(t.users))
		for _, u := range t.users {
			all = append(all, u)
		}
		slices.SortFunc(all, func(a, b user.User) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
		if skip > len(all) {
			skip = len(all)
		}
		end := min(skip+take, len(all))
		out = make([]*user.User, 0, end-skip)
		for i := skip; i < end; i++ {
			u := all[i]
			out = append(out, &u)
		}
		return nil
	})
	return out, err
}

func (r *userRepository) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := r.read(func(t *tables) error {
		for id := range t.users {
			out = append(out, id)
		}
		slices.SortFunc(out, compareID)
		return nil
	})
	return out, err
}

func (r *userRepository) Update(_ context.Context, u *user.User) error {
	return r.write(func(t *tables) error {
		stored, ok := t.users[u.ID]
		if !ok {
			return user.ErrUserNotFound
		}
		if stored.Version != u.Version {
			return domain.ErrConflict
		}
		for id, other := range t.users {
			if id != u.ID && other.Name == u.Name {
				return domain.ErrAlreadyExists
			}
		}
		next := *u
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		t.users[u.ID] = next
		u.Version = next.Version
		u.UpdatedAt = next.UpdatedAt
		return nil
	})
}

func (r *userRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[id]; !ok {
			return user.ErrUserNotFound
		}
		delete(t.users, id)
		for fid, f := range t.farms {
			if f.OwnerID == id {
				t.deleteFarm(fid)
			}
		}
		for tid, tok := range t.tokens {
			if tok.UserID == id {
				delete(t.tokens, tid)
			}
		}
		t.ledger = slices.DeleteFunc(t.ledger, func(e ledger.Entry) bool { return e.UserID == id })
		return nil
	})
}

// --- refresh tokens ---

type tokenRepository struct{ session }

func (r *tokenRepository) Create(_ context.Context, tok *user.RefreshToken) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[tok.UserID]; !ok {
			return user.ErrUserNotFound
		}
		for _, existing := range t.tokens {
			if existing.TokenHash == tok.TokenHash {
				return domain.ErrAlreadyExists
			}
		}
		t.tokens[tok.ID] = *tok
		return nil
	})
}

func (r *tokenRepository) GetByHash(_ context.Context, hash string) (*user.RefreshToken, error) {
	var out *user.RefreshToken
	err := r.read(func(t *tables) error {
		for _, tok := range t.tokens {
			if tok.TokenHash == hash {
				out = &tok
				return nil
			}
		}
		return domain.ErrNotFound
	})
	return out, err
}

func (r *tokenRepository) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.write(func(t *tables) error {
		tok, ok := t.tokens[id]
		if !ok {
			return domain.ErrNotFound
		}
		if tok.RevokedAt != nil {
			return domain.ErrConflict
		}
		tok.Revoke(at)
		t.tokens[id] = tok
		return nil
	})
}

// --- farms ---

type farmRepository struct{ session }

func (r *farmRepository) Create(_ context.Context, f *farm.Farm) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[f.OwnerID]; !ok {
			return user.ErrUserNotFound
		}
		if _, ok := t.farms[f.ID]; ok {
			return domain.ErrAlreadyExists
		}
		t.farms[f.ID] = *f
		return nil
	})
}

func (r *farmRepository) Get(_ context.Context, id uuid.UUID) (*farm.Farm, error) {
	var out *farm.Farm
	err := r.read(func(t *tables) error {
		f, ok := t.farms[id]
		if !ok {
			return farm.ErrFarmNotFound
		}
		out = &f
		return nil
	})
	return out, err
}

func (r *farmRepository) list(keep func(farm.Farm) bool) ([]*farm.Farm, error) {
	var out []*farm.Farm
	err := r.read(func(t *tables) error {
		all := make([]farm.Farm, 0, len(t.farms))
		for _, f := range t.farms {
			if keep(f) {
				all = append(all, f)
			}
		}
		slices.SortFunc(all, func(a, b farm.Farm) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return compareID(a.ID, b.ID)
		})
		out = make([]*farm.Farm, len(all))
		for i := range all {
			out[i] = &all[i]
		}
		return nil
	})
	return out, err
}

func (r *farmRepository) List(_ context.Context) ([]*farm.Farm, error) {
	return r.list(func(farm.Farm) bool { return true })
}

func (r *farmRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*farm.Farm, error) {
	return r.list(func(f farm.Farm) bool { return f.OwnerID == ownerID })
}

func (r *farmRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	farms, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(farms))
	for i, f := range farms {
		ids[i] = f.ID
	}
	return ids, nil
}

func (r *farmRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.farms[id]; !ok {
			return farm.ErrFarmNotFound
		}
		t.deleteFarm(id)
		return nil
	})
}

// --- animals ---

type animalRepository struct{ session }

func (r *animalRepository) Create(_ context.Context, a *animal.Animal) error {
	return r.write(func(t *tables) error {
		if _, ok := t.farms[a.FarmID]; !ok {
			return farm.ErrFarmNotFound
		}
		if _, ok := t.animals[a.ID]; ok {
			return domain.ErrAlreadyExists
		}
		t.animals[a.ID] = *a
		return nil
	})
}

func (r *animalRepository) Get(_ context.Context, id uuid.UUID) (*animal.Animal, error) {
	var out *animal.Animal
	err := r.read(func(t *tables) error {
		a, ok := t.animals[id]
		if !ok {
			return animal.ErrAnimalNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *animalRepository) list(keep func(animal.Animal) bool) ([]*animal.Animal, error) {
	var out []*animal.Animal
	err := r.read(func(t *tables) error {
		all := make([]animal.Animal, 0)
		for _, a := range t.animals {
			if keep(a) {
				all = append(all, a)
			}
		}
		slices.SortFunc(all, func(a, b animal.Animal) int {
			if c := a.PurchasedAt.Compare(b.PurchasedAt); c != 0 {
				return c
			}
			return compareID(a.ID, b.ID)
		})
		out = make([]*animal.Animal, len(all))
		for i := range all {
			out[i] = &all[i]
		}
		return nil
	})
	return out, err
}

func (r *animalRepository) ListByFarm(_ context.Context, farmID uuid.UUID) ([]*animal.Animal, error) {
	return r.list(func(a animal.Animal) bool { return a.FarmID == farmID })
}

func (r *animalRepository) ListAliveByFarm(_ context.Context, farmID uuid.UUID) ([]*animal.Animal, error) {
	return r.list(func(a animal.Animal) bool { return a.FarmID == farmID && a.IsAlive })
}

func (r *animalRepository) CountAliveBySpecies(_ context.Context, ownerID uuid.UUID) (map[animal.Species]int, error) {
	counts := make(map[animal.Species]int)
	err := r.read(func(t *tables) error {
		for _, a := range t.animals {
			if !a.IsAlive {
				continue
			}
			if f, ok := t.farms[a.FarmID]; ok && f.OwnerID == ownerID {
				counts[a.Species]++
			}
		}
		return nil
	})
	return counts, err
}

func (r *animalRepository) Update(_ context.Context, a *animal.Animal) error {
	return r.write(func(t *tables) error {
		if _, ok := t.animals[a.ID]; !ok {
			return animal.ErrAnimalNotFound
		}
		t.animals[a.ID] = *a
		return nil
	})
}

func (r *animalRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.write(func(t *tables) error {
		if _, ok := t.animals[id]; !ok {
			return animal.ErrAnimalNotFound
		}
		delete(t.animals, id)
		t.detachAnimal(id)
		return nil
	})
}

// --- products ---

type productRepository struct{ session }

func sortProducts(ps []product.Product) {
	slices.SortFunc(ps, func(a, b product.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareID(a.ID, b.ID)
	})
}

func pointers(ps []product.Product) []*product.Product {
	out := make([]*product.Product, len(ps))
	for i := range ps {
		out[i] = &ps[i]
	}
	return out
}

func (r *productRepository) Create(_ context.Context, p *product.Product) error {
	return r.write(func(t *tables) error {
		if _, ok := t.products[p.ID]; ok {
			return domain.ErrAlreadyExists
		}
		if _, ok := t.farms[p.FarmID]; p.FarmID != uuid.Nil && !ok {
			return farm.ErrFarmNotFound
		}
		t.products[p.ID] = *p
		return nil
	})
}

func (r *productRepository) GetMany(_ context.Context, ids []uuid.UUID) ([]*product.Product, error) {
	var out []*product.Product
	err := r.read(func(t *tables) error {
		found := make([]product.Product, 0, len(ids))
		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if p, ok := t.products[id]; ok {
				found = append(found, p)
			}
		}
		sortProducts(found)
		out = pointers(found)
		return nil
	})
	return out, err
}

func (r *productRepository) ListByFarm(_ context.Context, farmID uuid.UUID) ([]*product.Product, error) {
	var out []*product.Product
	err := r.read(func(t *tables) error {
		var found []product.Product
		for _, p := range t.products {
			if p.FarmID == farmID {
				found = append(found, p)
			}
		}
		sortProducts(found)
		out = pointers(found)
		return nil
	})
	return out, err
}

func (r *productRepository) ListUnsoldByOwner(_ context.Context, ownerID uuid.UUID, typ product.Type) ([]*product.Product, error) {
	var out []*product.Product
	err := r.read(func(t *tables) error {
		var found []product.Product
		for _, p := range t.products {
			if p.IsSold || p.Type != typ {
				continue
			}
			if f, ok := t.farms[p.FarmID]; ok && f.OwnerID == ownerID {
				found = append(found, p)
			}
		}
		sortProducts(found)
		out = pointers(found)
		return nil
	})
	return out, err
}

func (r *productRepository) MarkSold(_ context.Context, p *product.Product) error {
	return r.write(func(t *tables) error {
		stored, ok := t.products[p.ID]
		if !ok {
			return product.ErrProductNotFound
		}
		if stored.IsSold {
			return product.ErrAlreadySold
		}
		stored.IsSold = true
		stored.SoldAt = p.SoldAt
		stored.SoldTotal = p.SoldTotal
		stored.Quantity = p.Quantity
		t.products[p.ID] = stored
		return nil
	})
}

// --- ledger ---

type ledgerRepository struct{ session }

func (r *ledgerRepository) Append(_ context.Context, e *ledger.Entry) error {
	return r.write(func(t *tables) error {
		if _, ok := t.users[e.UserID]; !ok {
			return user.ErrUserNotFound
		}
		t.ledger = append(t.ledger, *e)
		return nil
	})
}

func (r *ledgerRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*ledger.Entry, error) {
	var out []*ledger.Entry
	err := r.read(func(t *tables) error {
		for _, e := range t.ledger {
			if e.UserID == userID {
				out = append(out, &e)
			}
		}
		return nil
	})
	return out, err
}

func (r *ledgerRepository) TotalsByUser(_ context.Context, userID uuid.UUID) (map[ledger.Type]money.Money, error) {
	totals := make(map[ledger.Type]money.Money)
	err := r.read(func(t *tables) error {
		for _, e := range t.ledger {
			if e.UserID == userID {
				totals[e.Type] = totals[e.Type].Add(e.Amount)
			}
		}
		return nil
	})
	return totals, err
}
