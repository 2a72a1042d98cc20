// Package query implements the grid query core: paging state, the closed
// registry of filterable/sortable vehicle columns, and the adapter that
// turns both into store fetches.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fleetops/vehicle-rental-service/internal/model"
)

// ErrUnknownColumn signals a column with no registered rule. It is a
// programmer/config error: fail fast, never retry.
var ErrUnknownColumn = errors.New("unknown column")

// Column identifies a vehicle grid column. The set is closed; only columns
// registered below can ever reach a WHERE or ORDER BY clause, so untrusted
// input cannot inject arbitrary filter or sort targets.
type Column string

const (
	ColumnLicenseNumber    Column = "license_number"
	ColumnBrand            Column = "brand"
	ColumnModel            Column = "model"
	ColumnMileage          Column = "mileage"
	ColumnRegistrationDate Column = "registration_date"
)

// Predicate reports whether a vehicle matches the filter text on one column.
type Predicate func(v model.Vehicle, text string) bool

// Compare orders two vehicles by one column's key: negative when a sorts
// before b, zero on equal keys. Ties keep whatever stable order the store
// provides; no secondary key is applied.
type Compare func(a, b model.Vehicle) int

// rule binds a column to its SQL identifier, filter predicate and sort key.
// A nil filter means the column is sort-only.
type rule struct {
	sqlName string
	filter  Predicate
	compare Compare
}

// Filtering is case-insensitive substring containment. The Postgres store
// uses ILIKE for the same columns, so both implementations agree.
func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

var rules = map[Column]rule{
	ColumnLicenseNumber: {
		sqlName: "license_number",
		filter:  func(v model.Vehicle, text string) bool { return contains(v.LicenseNumber, text) },
		compare: func(a, b model.Vehicle) int { return strings.Compare(a.LicenseNumber, b.LicenseNumber) },
	},
	ColumnBrand: {
		sqlName: "brand",
		filter:  func(v model.Vehicle, text string) bool { return contains(v.Brand, text) },
		compare: func(a, b model.Vehicle) int { return strings.Compare(a.Brand, b.Brand) },
	},
	ColumnModel: {
		sqlName: "model",
		filter:  func(v model.Vehicle, text string) bool { return contains(v.Model, text) },
		compare: func(a, b model.Vehicle) int { return strings.Compare(a.Model, b.Model) },
	},
	ColumnMileage: {
		sqlName: "mileage",
		compare: func(a, b model.Vehicle) int { return a.Mileage - b.Mileage },
	},
	ColumnRegistrationDate: {
		sqlName: "registration_date",
		compare: func(a, b model.Vehicle) int { return a.RegistrationDate.Compare(b.RegistrationDate) },
	},
}

// Columns lists every registered column, filterable or not.
func Columns() []Column {
	return []Column{
		ColumnLicenseNumber, ColumnBrand, ColumnModel,
		ColumnMileage, ColumnRegistrationDate,
	}
}

// ResolveFilter returns the predicate registered for the column.
func ResolveFilter(c Column) (Predicate, error) {
	r, ok := rules[c]
	if !ok || r.filter == nil {
		return nil, fmt.Errorf("%w: no filter for %q", ErrUnknownColumn, c)
	}
	return r.filter, nil
}

// ResolveSort returns the ordering rule registered for the column.
func ResolveSort(c Column) (Compare, error) {
	r, ok := rules[c]
	if !ok || r.compare == nil {
		return nil, fmt.Errorf("%w: no sort for %q", ErrUnknownColumn, c)
	}
	return r.compare, nil
}

// SQLColumn returns the column's identifier for SQL ORDER BY / WHERE
// construction. Only identifiers from this registry may be interpolated
// into statements.
func SQLColumn(c Column) (string, error) {
	r, ok := rules[c]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownColumn, c)
	}
	return r.sqlName, nil
}

// Validate checks the registry is exhaustive: every declared column must
// carry a SQL name and a sort rule. Run once at startup so a registry gap
// surfaces immediately instead of as a runtime lookup miss.
func Validate() error {
	for _, c := range Columns() {
		r, ok := rules[c]
		if !ok {
			return fmt.Errorf("%w: %q not registered", ErrUnknownColumn, c)
		}
		if r.sqlName == "" {
			return fmt.Errorf("column %q has no sql name", c)
		}
		if r.compare == nil {
			return fmt.Errorf("column %q has no sort rule", c)
		}
	}
	return nil
}
