package query

import (
	"context"

	"github.com/fleetops/vehicle-rental-service/internal/model"
	"github.com/rs/zerolog"
)

// FilterSortSpec declares how one grid fetch filters and orders vehicles.
// Empty FilterText means no filter; FilterColumn only needs to resolve when
// text is present. SortColumn must always resolve.
type FilterSortSpec struct {
	FilterColumn  Column `json:"filter_column"`
	FilterText    string `json:"filter_text"`
	SortColumn    Column `json:"sort_column"`
	SortAscending bool   `json:"sort_ascending"`
}

// Filtered reports whether the spec carries an active filter.
func (s FilterSortSpec) Filtered() bool { return s.FilterText != "" }

// Store is the slice of the persistence contract the adapter consumes:
// filtered/sorted windows and filtered counts. Returned vehicles are
// detached read-only copies; mutating them affects nothing.
type Store interface {
	Query(ctx context.Context, spec FilterSortSpec, limit, offset int) ([]model.Vehicle, error)
	Count(ctx context.Context, spec FilterSortSpec) (int, error)
}

// Adapter composes a FilterSortSpec and a PageState into concrete store
// fetches and writes the resulting totals back into the page state.
type Adapter struct {
	store Store
	log   zerolog.Logger
}

func NewAdapter(store Store, logger zerolog.Logger) *Adapter {
	l := logger.With().Str("component", "query_adapter").Logger()
	return &Adapter{store: store, log: l}
}

// Count returns the number of vehicles matching the spec's filter, ignoring
// paging. It validates the filter column before touching the store.
func (a *Adapter) Count(ctx context.Context, spec FilterSortSpec) (int, error) {
	if err := a.resolve(spec); err != nil {
		return 0, err
	}
	return a.store.Count(ctx, spec)
}

// FetchPage fetches one page window: filter, then sort, then skip/take.
func (a *Adapter) FetchPage(ctx context.Context, spec FilterSortSpec, page *PageState) ([]model.Vehicle, error) {
	if err := a.resolve(spec); err != nil {
		return nil, err
	}
	return a.store.Query(ctx, spec, page.PageSize, page.Skip())
}

// FetchAndUpdatePaging is the grid entry point: it counts the filtered set,
// fetches the current page and updates the page state's totals. The count
// and the fetch are two store calls; a writer committing between them can
// leave TotalItemCount and the returned page mutually inconsistent. That is
// an accepted trade-off, the grid self-corrects on the next fetch.
func (a *Adapter) FetchAndUpdatePaging(ctx context.Context, spec FilterSortSpec, page *PageState) ([]model.Vehicle, error) {
	total, err := a.Count(ctx, spec)
	if err != nil {
		return nil, err
	}
	page.TotalItemCount = total

	vehicles, err := a.FetchPage(ctx, spec, page)
	if err != nil {
		return nil, err
	}
	// The fetch itself takes at most PageSize rows, so the returned length
	// is already capped; no full-page special case needed.
	page.PageItems = len(vehicles)

	a.log.Debug().
		Str("filter_column", string(spec.FilterColumn)).
		Str("sort_column", string(spec.SortColumn)).
		Bool("ascending", spec.SortAscending).
		Int("page", page.Page).
		Int("total", total).
		Int("page_items", page.PageItems).
		Msg("grid page fetched")
	return vehicles, nil
}

// resolve fails fast with ErrUnknownColumn before a store round trip when
// the spec references unregistered columns.
func (a *Adapter) resolve(spec FilterSortSpec) error {
	if spec.Filtered() {
		if _, err := ResolveFilter(spec.FilterColumn); err != nil {
			return err
		}
	}
	_, err := ResolveSort(spec.SortColumn)
	return err
}
