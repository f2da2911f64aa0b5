package store

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/routeops-cli/internal/db"
	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool creates a PostgresStore over an existing pool. The
// store does not own the pool; Close is a no-op. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS visits (
	id               BIGSERIAL PRIMARY KEY,
	client_code      TEXT NOT NULL,
	customer_name_en TEXT NOT NULL DEFAULT '',
	customer_name_ar TEXT NOT NULL DEFAULT '',
	latitude         DOUBLE PRECISION,
	longitude        DOUBLE PRECISION,
	rep_code         TEXT NOT NULL DEFAULT '',
	day_name         TEXT NOT NULL DEFAULT '',
	week_number      INT NOT NULL DEFAULT 0,
	route_name       TEXT NOT NULL DEFAULT '',
	branch_code      TEXT NOT NULL DEFAULT '',
	branch_name      TEXT NOT NULL DEFAULT '',
	district         TEXT NOT NULL DEFAULT '',
	classification   TEXT NOT NULL DEFAULT '',
	store_type       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS customers (
	id             TEXT PRIMARY KEY,
	code           TEXT NOT NULL DEFAULT '',
	name_en        TEXT NOT NULL DEFAULT '',
	name_ar        TEXT NOT NULL DEFAULT '',
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	branch         TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	district       TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL DEFAULT '',
	store_type     TEXT NOT NULL DEFAULT '',
	extra          JSONB
);

CREATE INDEX IF NOT EXISTS idx_visits_branch ON visits(branch_code);
CREATE INDEX IF NOT EXISTS idx_visits_route ON visits(route_name);
CREATE INDEX IF NOT EXISTS idx_visits_group ON visits(rep_code, day_name, week_number);
CREATE INDEX IF NOT EXISTS idx_customers_branch ON customers(branch);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

var visitInsertColumns = []string{
	"client_code", "customer_name_en", "customer_name_ar",
	"latitude", "longitude", "rep_code", "day_name", "week_number",
	"route_name", "branch_code", "district", "classification", "store_type",
}

// InsertVisits bulk-loads a visit snapshot via COPY.
func (s *PostgresStore) InsertVisits(ctx context.Context, visits []model.Visit) error {
	if len(visits) == 0 {
		return nil
	}
	rows := make([][]any, len(visits))
	for i, v := range visits {
		rows[i] = []any{
			v.ClientCode, v.CustomerNameEn, v.CustomerNameAr,
			v.Latitude, v.Longitude, v.RepCode, v.DayName, v.WeekNumber,
			v.RouteName, v.BranchCode, v.District, v.Classification, v.StoreType,
		}
	}
	if _, err := s.pool.CopyFrom(ctx, pgx.Identifier{"visits"}, visitInsertColumns, pgx.CopyFromRows(rows)); err != nil {
		return eris.Wrap(err, "postgres: insert visits")
	}
	return nil
}

const visitColumns = `client_code, customer_name_en, customer_name_ar,
	latitude, longitude, rep_code, day_name, week_number,
	route_name, branch_code, district, classification, store_type`

// ListVisits returns the visit snapshot, restricted to analyzable rows:
// rep/day/week/branch present and coordinates usable.
func (s *PostgresStore) ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error) {
	sql := `SELECT ` + visitColumns + `
		FROM visits
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND NOT (abs(latitude) < 0.0001 AND abs(longitude) < 0.0001)
		  AND rep_code <> '' AND day_name <> '' AND week_number > 0 AND branch_code <> ''`
	var args []any
	if filter.BranchCode != "" {
		args = append(args, filter.BranchCode)
		sql += ` AND branch_code = $` + strconv.Itoa(len(args))
	}
	if filter.WeekNumber > 0 {
		args = append(args, filter.WeekNumber)
		sql += ` AND week_number = $` + strconv.Itoa(len(args))
	}
	if len(filter.RouteNames) > 0 {
		args = append(args, filter.RouteNames)
		sql += ` AND route_name = ANY($` + strconv.Itoa(len(args)) + `)`
	}
	sql += ` ORDER BY rep_code, day_name, week_number, client_code`

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list visits")
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(
			&v.ClientCode, &v.CustomerNameEn, &v.CustomerNameAr,
			&v.Latitude, &v.Longitude, &v.RepCode, &v.DayName, &v.WeekNumber,
			&v.RouteName, &v.BranchCode, &v.District, &v.Classification, &v.StoreType,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan visit")
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate visits")
	}
	return visits, nil
}

// Branches returns the distinct (code, display name) pairs observed in the
// visit dataset.
func (s *PostgresStore) Branches(ctx context.Context) ([]model.Branch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT branch_code, COALESCE(NULLIF(branch_name, ''), branch_code)
		FROM visits
		WHERE branch_code <> ''
		ORDER BY branch_code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list branches")
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		var b model.Branch
		if err := rows.Scan(&b.Code, &b.DisplayName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan branch")
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate branches")
	}
	return branches, nil
}

// RouteNames returns the distinct route names observed in the dataset.
func (s *PostgresStore) RouteNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT route_name FROM visits WHERE route_name <> '' ORDER BY route_name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list route names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan route name")
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate route names")
	}
	return names, nil
}

// ListCustomers returns the full customer dataset for a cleaning pass.
func (s *PostgresStore) ListCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, name_en, name_ar, latitude, longitude,
		       branch, address, district, classification, store_type, extra
		FROM customers
		ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list customers")
	}
	defer rows.Close()

	var records []model.CustomerRecord
	for rows.Next() {
		var r model.CustomerRecord
		var lat, lng *float64
		var extra []byte
		if err := rows.Scan(
			&r.ID, &r.Code, &r.NameEn, &r.NameAr, &lat, &lng,
			&r.Branch, &r.Address, &r.District, &r.Classification, &r.StoreType, &extra,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan customer")
		}
		if lat != nil {
			r.Latitude = *lat
		}
		if lng != nil {
			r.Longitude = *lng
		}
		if len(extra) > 0 {
			if err := json.Unmarshal(extra, &r.Extra); err != nil {
				return nil, eris.Wrapf(err, "postgres: decode extra for customer %s", r.ID)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate customers")
	}
	return records, nil
}

var customerColumns = []string{
	"id", "code", "name_en", "name_ar", "latitude", "longitude",
	"branch", "address", "district", "classification", "store_type", "extra",
}

// UpsertCustomers bulk-upserts customer records merged by primary key.
// Records without an id are assigned one. Empty incoming fields never
// overwrite stored values.
func (s *PostgresStore) UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		var lat, lng any
		if geo.ValidCoordinate(r.Latitude, r.Longitude) {
			lat, lng = r.Latitude, r.Longitude
		}
		var extra any
		if len(r.Extra) > 0 {
			data, err := json.Marshal(r.Extra)
			if err != nil {
				return 0, eris.Wrapf(err, "postgres: encode extra for customer %s", r.ID)
			}
			extra = data
		}
		rows = append(rows, []any{
			r.ID, r.Code, r.NameEn, r.NameAr, lat, lng,
			r.Branch, r.Address, r.District, r.Classification, r.StoreType, extra,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "customers",
		Columns:      customerColumns,
		ConflictKeys: []string{"id"},
		MergeCols: []string{
			"code", "name_en", "name_ar", "branch", "address",
			"district", "classification", "store_type",
		},
		NullMergeCols: []string{"latitude", "longitude", "extra"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert customers")
	}
	return n, nil
}

// DeleteCustomer removes one customer by id. Deleting a missing id is not
// an error.
func (s *PostgresStore) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete customer %s", id)
	}
	return nil
}

// DeleteAllCustomers clears the customer dataset.
func (s *PostgresStore) DeleteAllCustomers(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM customers`); err != nil {
		return eris.Wrap(err, "postgres: delete all customers")
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

