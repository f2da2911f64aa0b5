// Package ingest parses visit roster and customer dataset exports. Files
// come out of legacy ERP exports with inconsistent header spellings, so
// columns are matched by normalized name rather than position.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/routeops-cli/internal/model"
)

// visitAliases maps canonical visit fields to the header spellings seen in
// the wild.
var visitAliases = map[string][]string{
	"client_code":    {"client_code", "clientcode", "client", "code"},
	"name_en":        {"customer_name_en", "name_en", "customer_name", "customer", "name"},
	"name_ar":        {"customer_name_ar", "name_ar", "arabic_name"},
	"latitude":       {"latitude", "lat"},
	"longitude":      {"longitude", "lng", "lon", "long"},
	"rep_code":       {"rep_code", "rep", "user_code", "salesman_code"},
	"day_name":       {"day_name", "day", "visit_day"},
	"week_number":    {"week_number", "week", "week_no"},
	"route_name":     {"route_name", "route"},
	"branch_code":    {"branch_code", "branch"},
	"district":       {"district", "area"},
	"classification": {"classification", "class"},
	"store_type":     {"store_type", "type", "channel"},
}

// customerAliases covers the named customer fields; headers that match none
// of these land in the record's Extra bag.
var customerAliases = map[string][]string{
	"id":             {"id", "record_id"},
	"code":           {"code", "client_code", "clientcode"},
	"name_en":        {"name_en", "customer_name_en", "customer_name", "name"},
	"name_ar":        {"name_ar", "customer_name_ar", "arabic_name"},
	"latitude":       {"latitude", "lat"},
	"longitude":      {"longitude", "lng", "lon", "long"},
	"branch":         {"branch", "branch_code"},
	"address":        {"address", "street"},
	"district":       {"district", "area"},
	"classification": {"classification", "class"},
	"store_type":     {"store_type", "type", "channel"},
}

// ReadVisits parses a visit roster export. The format is picked by file
// extension: .csv or .xlsx.
func ReadVisits(path string) ([]model.Visit, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s is empty", path)
	}

	cols := mapColumns(rows[0], visitAliases, nil)
	var visits []model.Visit
	for _, row := range rows[1:] {
		get := func(field string) string { return cellAt(row, cols[field]) }
		visits = append(visits, model.Visit{
			ClientCode:     get("client_code"),
			CustomerNameEn: get("name_en"),
			CustomerNameAr: get("name_ar"),
			Latitude:       parseFloat(get("latitude")),
			Longitude:      parseFloat(get("longitude")),
			RepCode:        get("rep_code"),
			DayName:        get("day_name"),
			WeekNumber:     parseInt(get("week_number")),
			RouteName:      get("route_name"),
			BranchCode:     get("branch_code"),
			District:       get("district"),
			Classification: get("classification"),
			StoreType:      get("store_type"),
		})
	}
	return visits, nil
}

// ReadCustomers parses a customer dataset export. Unrecognized columns are
// preserved in each record's Extra map.
func ReadCustomers(path string) ([]model.CustomerRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("ingest: %s is empty", path)
	}

	var extraCols map[int]string
	cols := mapColumns(rows[0], customerAliases, func(idx int, header string) {
		if extraCols == nil {
			extraCols = map[int]string{}
		}
		extraCols[idx] = header
	})

	var records []model.CustomerRecord
	for _, row := range rows[1:] {
		get := func(field string) string { return cellAt(row, cols[field]) }
		rec := model.CustomerRecord{
			ID:             get("id"),
			Code:           get("code"),
			NameEn:         get("name_en"),
			NameAr:         get("name_ar"),
			Latitude:       parseFloat(get("latitude")),
			Longitude:      parseFloat(get("longitude")),
			Branch:         get("branch"),
			Address:        get("address"),
			District:       get("district"),
			Classification: get("classification"),
			StoreType:      get("store_type"),
		}
		for idx, header := range extraCols {
			if v := cellAt(row, idx); v != "" {
				if rec.Extra == nil {
					rec.Extra = map[string]string{}
				}
				rec.Extra[header] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func readRows(path string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv")
		}
		rows = append(rows, record)
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("ingest: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// mapColumns resolves a header row to canonical field indexes. Headers that
// match no alias are handed to onUnknown when set.
func mapColumns(header []string, aliases map[string][]string, onUnknown func(idx int, header string)) map[string]int {
	byAlias := map[string]string{}
	for field, names := range aliases {
		for _, n := range names {
			byAlias[n] = field
		}
	}

	cols := map[string]int{}
	for field := range aliases {
		cols[field] = -1
	}
	for idx, h := range header {
		norm := normalizeHeader(h)
		field, ok := byAlias[norm]
		if !ok {
			if onUnknown != nil && norm != "" {
				onUnknown(idx, norm)
			}
			continue
		}
		if cols[field] == -1 {
			cols[field] = idx
		}
	}
	return cols
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		// Week columns sometimes come through as "1.0" from spreadsheet
		// exports.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return v
}
