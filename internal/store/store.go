// Package store defines the persistence interface behind the analysis
// engines and its Postgres and SQLite implementations. The analyses only
// ever read full snapshots and write back human-approved changes; nothing
// here is consulted mid-run.
package store

import (
	"context"

	"github.com/sells-group/routeops-cli/internal/model"
)

// Store is the persistence interface for the console core.
//
// ListVisits returns rows already restricted to non-null rep/day/week/branch
// and usable coordinates; the grouper re-checks anyway because some backends
// are less strict. UpsertCustomers accepts partial records merged by primary
// key: empty incoming fields never clobber stored values.
type Store interface {
	// Visit snapshot
	InsertVisits(ctx context.Context, visits []model.Visit) error
	ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error)
	Branches(ctx context.Context) ([]model.Branch, error)
	RouteNames(ctx context.Context) ([]string, error)

	// Customer/lead dataset
	ListCustomers(ctx context.Context) ([]model.CustomerRecord, error)
	UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error)
	DeleteCustomer(ctx context.Context, id string) error
	DeleteAllCustomers(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
