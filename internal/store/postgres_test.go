package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/routeops-cli/internal/model"
)

var visitCols = []string{
	"client_code", "customer_name_en", "customer_name_ar",
	"latitude", "longitude", "rep_code", "day_name", "week_number",
	"route_name", "branch_code", "district", "classification", "store_type",
}

func TestPostgresListVisits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM visits`).
		WillReturnRows(pgxmock.NewRows(visitCols).
			AddRow("C001", "Al Noor Market", "", 24.7, 46.7, "REP-1", "Monday", 1,
				"RT-01", "RIY", "Olaya", "A", "grocery").
			AddRow("C002", "Panda Express", "", 24.8, 46.6, "REP-2", "Tuesday", 1,
				"RT-02", "RIY", "Malaz", "B", "hyper"))

	s := NewPostgresFromPool(mock)
	visits, err := s.ListVisits(context.Background(), model.VisitFilter{})
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "C001", visits[0].ClientCode)
	assert.Equal(t, "REP-2", visits[1].RepCode)
	assert.Equal(t, 1, visits[1].WeekNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListVisitsFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`branch_code = \$1 AND week_number = \$2 AND route_name = ANY\(\$3\)`).
		WithArgs("RIY", 2, []string{"RT-01", "RT-02"}).
		WillReturnRows(pgxmock.NewRows(visitCols))

	s := NewPostgresFromPool(mock)
	_, err = s.ListVisits(context.Background(), model.VisitFilter{
		BranchCode: "RIY",
		WeekNumber: 2,
		RouteNames: []string{"RT-01", "RT-02"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBranches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT DISTINCT branch_code`).
		WillReturnRows(pgxmock.NewRows([]string{"branch_code", "display"}).
			AddRow("JED", "Jeddah").
			AddRow("RIY", "RIY"))

	s := NewPostgresFromPool(mock)
	branches, err := s.Branches(context.Background())
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, model.Branch{Code: "JED", DisplayName: "Jeddah"}, branches[0])
	assert.Equal(t, "RIY", branches[1].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListCustomers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	lat, lng := 24.7136, 46.6753
	mock.ExpectQuery(`FROM customers`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "code", "name_en", "name_ar", "latitude", "longitude",
			"branch", "address", "district", "classification", "store_type", "extra",
		}).
			AddRow("1", "C001", "Al Noor Market", "", &lat, &lng,
				"RIY", "", "Olaya", "A", "grocery", []byte(`{"channel":"retail"}`)).
			AddRow("2", "C002", "Panda", "", (*float64)(nil), (*float64)(nil),
				"RIY", "King Rd", "", "", "", []byte(nil)))

	s := NewPostgresFromPool(mock)
	records, err := s.ListCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 24.7136, records[0].Latitude)
	assert.Equal(t, "retail", records[0].Extra["channel"])
	assert.Zero(t, records[1].Latitude)
	assert.Nil(t, records[1].Extra)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertCustomersMergesByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_customers"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_customers"}, customerColumns).
		WillReturnResult(1)
	mock.ExpectExec(`COALESCE\(NULLIF\(EXCLUDED."address", ''\), "customers"."address"\)`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	s := NewPostgresFromPool(mock)
	n, err := s.UpsertCustomers(context.Background(), []model.CustomerRecord{
		{ID: "1", Address: "Near 24.713600, 46.675300"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertAssignsIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_customers"}, customerColumns).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "customers"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	s := NewPostgresFromPool(mock)
	n, err := s.UpsertCustomers(context.Background(), []model.CustomerRecord{
		{Code: "C100", NameEn: "New Lead"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertVisits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"visits"}, visitInsertColumns).WillReturnResult(2)

	s := NewPostgresFromPool(mock)
	err = s.InsertVisits(context.Background(), []model.Visit{
		{ClientCode: "C001", RepCode: "REP-1", DayName: "Monday", WeekNumber: 1},
		{ClientCode: "C002", RepCode: "REP-2", DayName: "Tuesday", WeekNumber: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteCustomer(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM customers WHERE id = \$1`).
		WithArgs("42").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	s := NewPostgresFromPool(mock)
	require.NoError(t, s.DeleteCustomer(context.Background(), "42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
