// Package export renders optimization and cleaning results for operators:
// a terminal table for interactive review, CSV and XLSX for spreadsheets,
// and YAML for feeding decisions back into the apply workflow.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/routeops-cli/internal/model"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a user-supplied format flag.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable:
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want table, csv, xlsx or yaml)", s)
	}
}

var candidateHeader = []string{
	"id", "type", "client_code", "customer", "district", "branch",
	"from_user", "to_user", "from_day", "to_day", "week", "route",
	"distance_saved_km", "time_saved_min", "impact", "confidence", "reason",
}

func candidateRow(c model.SwapCandidate) []string {
	return []string{
		strconv.Itoa(c.ID), string(c.Type), c.ClientCode, c.CustomerName,
		c.District, c.Branch, c.FromUser, c.ToUser, c.FromDay, c.ToDay,
		strconv.Itoa(c.FromWeek), c.FromRoute,
		strconv.FormatFloat(c.DistanceSaved, 'f', 1, 64),
		strconv.Itoa(c.TimeSaved),
		strconv.Itoa(c.ImpactScore), strconv.Itoa(c.Confidence), c.Reason,
	}
}

// Candidates writes an optimization result to w in the requested format.
func Candidates(w io.Writer, format Format, res *model.OptimizationResult) error {
	switch format {
	case FormatTable:
		return candidatesTable(w, res)
	case FormatCSV:
		return candidatesCSV(w, res)
	case FormatXLSX:
		return candidatesXLSX(w, res)
	case FormatYAML:
		return yamlTo(w, res)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

func candidatesTable(out io.Writer, res *model.OptimizationResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCLIENT\tCUSTOMER\tFROM\tTO\tSAVED KM\tIMPACT\tCONF")
	for _, c := range res.Suggestions {
		from, to := c.FromUser, c.ToUser
		if c.Type == model.SwapTypeDay {
			from, to = c.FromDay, c.ToDay
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%.1f\t%d\t%d\n",
			c.ID, c.Type, c.ClientCode, c.CustomerName, from, to,
			c.DistanceSaved, c.ImpactScore, c.Confidence)
	}
	fmt.Fprintf(w, "\nSuggestions: %d\tTotal saved: %.1f km / %.1f h\n",
		res.Summary.Count, res.Summary.TotalDistanceKM, res.Summary.TotalTimeHours)
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "export: flush table")
	}
	return nil
}

func candidatesCSV(out io.Writer, res *model.OptimizationResult) error {
	w := csv.NewWriter(out)
	if err := w.Write(candidateHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, c := range res.Suggestions {
		if err := w.Write(candidateRow(c)); err != nil {
			return eris.Wrapf(err, "export: write csv row %d", c.ID)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

func candidatesXLSX(out io.Writer, res *model.OptimizationResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Suggestions")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	addStringRow(sheet, candidateHeader)
	for _, c := range res.Suggestions {
		addStringRow(sheet, candidateRow(c))
	}

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}
	addStringRow(summary, []string{"run_id", res.RunID})
	addStringRow(summary, []string{"visits_analyzed", strconv.Itoa(res.VisitCount)})
	addStringRow(summary, []string{"route_groups", strconv.Itoa(res.GroupCount)})
	addStringRow(summary, []string{"suggestions", strconv.Itoa(res.Summary.Count)})
	addStringRow(summary, []string{"total_distance_km", strconv.FormatFloat(res.Summary.TotalDistanceKM, 'f', 1, 64)})
	addStringRow(summary, []string{"total_time_hours", strconv.FormatFloat(res.Summary.TotalTimeHours, 'f', 1, 64)})

	if err := f.Write(out); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

func addStringRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

// CleaningReport is the reviewable artifact produced by the dedupe and
// standardize passes. Operators edit the resolutions in place and feed the
// file back to the apply workflow.
type CleaningReport struct {
	Duplicates []model.DuplicatePair          `yaml:"duplicates,omitempty"`
	Proposals  []model.StandardizationProposal `yaml:"proposals,omitempty"`
	Branches   []model.BranchVariationCluster  `yaml:"branch_clusters,omitempty"`
}

// Report writes a cleaning report to w as YAML.
func Report(w io.Writer, rep *CleaningReport) error {
	return yamlTo(w, rep)
}

func yamlTo(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: close yaml encoder")
	}
	return nil
}
