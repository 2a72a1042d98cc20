// Package memory provides an in-process VehicleRepository used by the
// contract suite and service tests. It mirrors the Postgres semantics:
// case-insensitive containment filters, stable sorts, and the same
// token-compare-and-write rule guarded by one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/fleetops/vehicle-rental-service/internal/query"
	"github.com/fleetops/vehicle-rental-service/internal/repository"
	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	nextID      int64
	nextAuditID int64
	vehicles    map[int64]model.Vehicle
	tokens      map[int64]model.VersionToken
	audits      []model.VehicleAudit
}

func NewStore() *Store {
	return &Store{
		nextID:      1,
		nextAuditID: 1,
		vehicles:    map[int64]model.Vehicle{},
		tokens:      map[int64]model.VersionToken{},
	}
}

func (s *Store) Create(_ context.Context, v model.Vehicle) (model.Vehicle, model.VersionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	v.ID = s.nextID
	s.nextID++
	v.CreatedAt = now
	v.UpdatedAt = now
	token := model.VersionToken(uuid.NewString())
	s.vehicles[v.ID] = v
	s.tokens[v.ID] = token
	return v, token, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, repository.ErrNotFound
	}
	return v, nil
}

func (s *Store) LoadForUpdate(_ context.Context, id int64) (model.Vehicle, model.VersionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, "", repository.ErrNotFound
	}
	return v, s.tokens[id], nil
}

func (s *Store) GetCurrentToken(_ context.Context, id int64) (model.VersionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return "", repository.ErrNotFound
	}
	return t, nil
}

// matched returns the filtered set in insertion (id) order, which stands in
// for the store's natural stable order.
func (s *Store) matched(spec query.FilterSortSpec) ([]model.Vehicle, error) {
	var pred query.Predicate
	if spec.Filtered() {
		var err error
		pred, err = query.ResolveFilter(spec.FilterColumn)
		if err != nil {
			return nil, err
		}
	}
	ids := make([]int64, 0, len(s.vehicles))
	for id := range s.vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.Vehicle, 0, len(ids))
	for _, id := range ids {
		v := s.vehicles[id]
		if pred != nil && !pred(v, spec.FilterText) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) Query(_ context.Context, spec query.FilterSortSpec, limit, offset int) ([]model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmp, err := query.ResolveSort(spec.SortColumn)
	if err != nil {
		return nil, err
	}
	set, err := s.matched(spec)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(set, func(i, j int) bool {
		c := cmp(set[i], set[j])
		if spec.SortAscending {
			return c < 0
		}
		return c > 0
	})
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(set) {
		return []model.Vehicle{}, nil
	}
	end := len(set)
	if offset+limit < end {
		end = offset + limit
	}
	page := make([]model.Vehicle, end-offset)
	copy(page, set[offset:end])
	return page, nil
}

func (s *Store) Count(_ context.Context, spec query.FilterSortSpec) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, err := s.matched(spec)
	if err != nil {
		return 0, err
	}
	return len(set), nil
}

func (s *Store) UpdateIfTokenMatches(_ context.Context, v model.Vehicle, expected model.VersionToken) (repository.WriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.vehicles[v.ID]
	if !ok {
		return repository.WriteResult{}, repository.ErrNotFound
	}
	stored := s.tokens[v.ID]
	if !stored.Equal(expected) {
		return repository.WriteResult{
			Accepted:      false,
			ServerVehicle: current,
			CurrentToken:  stored,
		}, nil
	}
	v.CreatedAt = current.CreatedAt
	v.UpdatedAt = time.Now()
	minted := model.VersionToken(uuid.NewString())
	s.vehicles[v.ID] = v
	s.tokens[v.ID] = minted
	return repository.WriteResult{Accepted: true, NewToken: minted}, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.vehicles, id)
	delete(s.tokens, id)
	return nil
}

func (s *Store) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.vehicles[id]
	return ok, nil
}

func (s *Store) Insert(_ context.Context, a model.VehicleAudit) (model.VehicleAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextAuditID
	s.nextAuditID++
	if a.EventTime.IsZero() {
		a.EventTime = time.Now()
	}
	s.audits = append(s.audits, a)
	return a, nil
}

func (s *Store) ListByVehicle(_ context.Context, vehicleID int64, p repository.Page) (repository.PageResult[model.VehicleAudit], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]model.VehicleAudit, 0)
	for _, a := range s.audits {
		if a.VehicleID == vehicleID {
			matched = append(matched, a)
		}
	}
	// newest first, like the Postgres listing
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	res := repository.PageResult[model.VehicleAudit]{Total: len(matched)}
	limit := p.Limit
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		res.Items = []model.VehicleAudit{}
		return res, nil
	}
	end := len(matched)
	if offset+limit < end {
		end = offset + limit
	}
	res.Items = matched[offset:end]
	return res, nil
}

// WithinTx runs fn directly; the store's single mutex already makes each
// operation atomic and there is no multi-statement rollback to emulate.
func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	return fn(ctx)
}

func (s *Store) Ping(context.Context) error { return nil }

var (
	_ repository.VehicleRepository = (*Store)(nil)
	_ repository.AuditRepository   = (*Store)(nil)
	_ repository.TxManager         = (*Store)(nil)
	_ repository.Pinger            = (*Store)(nil)
	_ query.Store                  = (*Store)(nil)
)
