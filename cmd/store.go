package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
	"github.com/sells-group/routeops-cli/internal/optimizer"
	"github.com/sells-group/routeops-cli/internal/store"
	sfpkg "github.com/sells-group/routeops-cli/pkg/salesforce"
)

// customerStore is the customer-dataset slice of the persistence API. Local
// stores implement it alongside the visit snapshot; the Salesforce lead
// store implements only this.
type customerStore interface {
	ListCustomers(ctx context.Context) ([]model.CustomerRecord, error)
	UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error)
	DeleteCustomer(ctx context.Context, id string) error
	DeleteAllCustomers(ctx context.Context) error
}

// initStore opens the local store backing the visit snapshot. The
// salesforce driver has no visit data, so commands that analyze routes
// reject it.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "salesforce":
		return nil, eris.New("visit analysis requires a local store driver (sqlite or postgres)")
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// initCustomerStore opens the customer dataset for cleaning commands. The
// returned closer releases the backing store.
func initCustomerStore(ctx context.Context) (customerStore, func(), error) {
	if cfg.Store.Driver == "salesforce" {
		client, err := initSalesforce()
		if err != nil {
			return nil, nil, err
		}
		return sfpkg.NewLeadStore(client), func() {}, nil
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { _ = st.Close() }, nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (ROUTEOPS_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(cfg.Salesforce.RateRPS)), nil
}

// newOptimizerService wires the candidate search from config over a visit
// source.
func newOptimizerService(source optimizer.VisitSource) *optimizer.Service {
	search := optimizer.NewSearch(
		optimizer.SearchConfig{MinImprovementKM: cfg.Optimizer.MinImprovementKM},
		geo.NewSpeedModel(cfg.Optimizer.UrbanSpeedKMH, cfg.Optimizer.HighwaySpeedKMH),
	)
	return optimizer.NewService(source, search, cfg.Optimizer.MaxSuggestions)
}
