package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/routeops-cli/internal/geo"
	"github.com/sells-group/routeops-cli/internal/model"
)

// SQLiteStore implements Store on a local sqlite file. It is the default
// backend for single-operator use where no postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
PRAGMA journal_mode=WAL;
PRAGMA synchronous=NORMAL;
PRAGMA busy_timeout=5000;

CREATE TABLE IF NOT EXISTS visits (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	client_code      TEXT NOT NULL,
	customer_name_en TEXT NOT NULL DEFAULT '',
	customer_name_ar TEXT NOT NULL DEFAULT '',
	latitude         REAL,
	longitude        REAL,
	rep_code         TEXT NOT NULL DEFAULT '',
	day_name         TEXT NOT NULL DEFAULT '',
	week_number      INTEGER NOT NULL DEFAULT 0,
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
	latitude       REAL,
	longitude      REAL,
	branch         TEXT NOT NULL DEFAULT '',
	address        TEXT NOT NULL DEFAULT '',
	district       TEXT NOT NULL DEFAULT '',
	classification TEXT NOT NULL DEFAULT '',
	store_type     TEXT NOT NULL DEFAULT '',
	extra          TEXT
);

CREATE INDEX IF NOT EXISTS idx_visits_branch ON visits(branch_code);
CREATE INDEX IF NOT EXISTS idx_visits_group ON visits(rep_code, day_name, week_number);
CREATE INDEX IF NOT EXISTS idx_customers_branch ON customers(branch);
`

// NewSQLite opens (or creates) a sqlite database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// modernc sqlite is not safe for concurrent writers on one connection.
	conn.SetMaxOpenConns(1)
	return &SQLiteStore{db: conn}, nil
}

// Migrate applies pragmas and creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// ListVisits returns the visit snapshot, restricted to analyzable rows.
func (s *SQLiteStore) ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error) {
	query := `SELECT client_code, customer_name_en, customer_name_ar,
		latitude, longitude, rep_code, day_name, week_number,
		route_name, branch_code, district, classification, store_type
		FROM visits
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		  AND NOT (abs(latitude) < 0.0001 AND abs(longitude) < 0.0001)
		  AND rep_code <> '' AND day_name <> '' AND week_number > 0 AND branch_code <> ''`
	var args []any
	if filter.BranchCode != "" {
		query += ` AND branch_code = ?`
		args = append(args, filter.BranchCode)
	}
	if filter.WeekNumber > 0 {
		query += ` AND week_number = ?`
		args = append(args, filter.WeekNumber)
	}
	if len(filter.RouteNames) > 0 {
		query += ` AND route_name IN (?` + repeatPlaceholder(len(filter.RouteNames)-1) + `)`
		for _, name := range filter.RouteNames {
			args = append(args, name)
		}
	}
	query += ` ORDER BY rep_code, day_name, week_number, client_code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list visits")
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
			return nil, eris.Wrap(err, "sqlite: scan visit")
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate visits")
	}
	return visits, nil
}

// Branches returns the distinct (code, display name) pairs observed in the
// visit dataset.
func (s *SQLiteStore) Branches(ctx context.Context) ([]model.Branch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT branch_code, COALESCE(NULLIF(branch_name, ''), branch_code)
		FROM visits
		WHERE branch_code <> ''
		ORDER BY branch_code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list branches")
	}
	defer rows.Close()

	var branches []model.Branch
	for rows.Next() {
		var b model.Branch
		if err := rows.Scan(&b.Code, &b.DisplayName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan branch")
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate branches")
	}
	return branches, nil
}

// RouteNames returns the distinct route names observed in the dataset.
func (s *SQLiteStore) RouteNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT route_name FROM visits WHERE route_name <> '' ORDER BY route_name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list route names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan route name")
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate route names")
	}
	return names, nil
}

// ListCustomers returns the full customer dataset for a cleaning pass.
func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]model.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, name_en, name_ar, latitude, longitude,
		       branch, address, district, classification, store_type, extra
		FROM customers
		ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list customers")
	}
	defer rows.Close()

	var records []model.CustomerRecord
	for rows.Next() {
		var r model.CustomerRecord
		var lat, lng sql.NullFloat64
		var extra sql.NullString
		if err := rows.Scan(
			&r.ID, &r.Code, &r.NameEn, &r.NameAr, &lat, &lng,
			&r.Branch, &r.Address, &r.District, &r.Classification, &r.StoreType, &extra,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan customer")
		}
		r.Latitude = lat.Float64
		r.Longitude = lng.Float64
		if extra.Valid && extra.String != "" {
			if err := json.Unmarshal([]byte(extra.String), &r.Extra); err != nil {
				return nil, eris.Wrapf(err, "sqlite: decode extra for customer %s", r.ID)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate customers")
	}
	return records, nil
}

// Empty incoming text fields never overwrite stored values, and coordinates
// and extra only fill when present.
const sqliteUpsertCustomer = `
INSERT INTO customers (id, code, name_en, name_ar, latitude, longitude,
	branch, address, district, classification, store_type, extra)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	code           = COALESCE(NULLIF(excluded.code, ''), customers.code),
	name_en        = COALESCE(NULLIF(excluded.name_en, ''), customers.name_en),
	name_ar        = COALESCE(NULLIF(excluded.name_ar, ''), customers.name_ar),
	latitude       = COALESCE(excluded.latitude, customers.latitude),
	longitude      = COALESCE(excluded.longitude, customers.longitude),
	branch         = COALESCE(NULLIF(excluded.branch, ''), customers.branch),
	address        = COALESCE(NULLIF(excluded.address, ''), customers.address),
	district       = COALESCE(NULLIF(excluded.district, ''), customers.district),
	classification = COALESCE(NULLIF(excluded.classification, ''), customers.classification),
	store_type     = COALESCE(NULLIF(excluded.store_type, ''), customers.store_type),
	extra          = COALESCE(excluded.extra, customers.extra)
`

// UpsertCustomers upserts customer records merged by primary key inside a
// single transaction. Records without an id are assigned one.
func (s *SQLiteStore) UpsertCustomers(ctx context.Context, records []model.CustomerRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertCustomer)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close()

	var n int64
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
				return 0, eris.Wrapf(err, "sqlite: encode extra for customer %s", r.ID)
			}
			extra = string(data)
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.Code, r.NameEn, r.NameAr, lat, lng,
			r.Branch, r.Address, r.District, r.Classification, r.StoreType, extra,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert customer %s", r.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert")
	}
	return n, nil
}

// DeleteCustomer removes one customer by id. Deleting a missing id is not
// an error.
func (s *SQLiteStore) DeleteCustomer(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete customer %s", id)
	}
	return nil
}

// DeleteAllCustomers clears the customer dataset.
func (s *SQLiteStore) DeleteAllCustomers(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return eris.Wrap(err, "sqlite: delete all customers")
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// InsertVisits loads a visit snapshot, typically from an imported roster
// export. Used by the import path and by tests.
func (s *SQLiteStore) InsertVisits(ctx context.Context, visits []model.Visit) error {
	if len(visits) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin insert visits")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO visits (client_code, customer_name_en, customer_name_ar,
			latitude, longitude, rep_code, day_name, week_number,
			route_name, branch_code, district, classification, store_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert visits")
	}
	defer stmt.Close()

	for _, v := range visits {
		if _, err := stmt.ExecContext(ctx,
			v.ClientCode, v.CustomerNameEn, v.CustomerNameAr,
			v.Latitude, v.Longitude, v.RepCode, v.DayName, v.WeekNumber,
			v.RouteName, v.BranchCode, v.District, v.Classification, v.StoreType,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert visit %s", v.ClientCode)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit insert visits")
	}
	return nil
}

func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		out = append(out, ',', '?')
	}
	return string(out)
}
