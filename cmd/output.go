package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ma-discovery/internal/api"
	"github.com/sells-group/ma-discovery/internal/model"
)

// writeResults renders scored companies in the requested format, to the
// given path or stdout.
func writeResults(scored []*model.ScoredCompany, format, path string) error {
	out := io.Writer(os.Stdout)
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "table":
		formatResultsTable(out, scored)
		return nil
	case "csv":
		return formatResultsCSV(out, scored)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scored)
	case "xlsx":
		if path == "" {
			return eris.New("xlsx format requires --output")
		}
		return api.WriteXLSX(out, scored)
	default:
		return eris.Errorf("unsupported format: %s", format)
	}
}

func formatResultsTable(out io.Writer, scored []*model.ScoredCompany) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tSCORE\tCONF\tCOMPANY\tMODEL\tINDUSTRY\tQUALIFIED")
	_, _ = fmt.Fprintln(w, "----\t-----\t----\t-------\t-----\t--------\t---------")

	for _, c := range scored {
		name := c.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		qualified := "yes"
		if !c.PassedFilters || c.IsDisqualified {
			qualified = "no"
		}
		_, _ = fmt.Fprintf(w, "%d\t%.1f\t%.2f\t%s\t%s\t%s\t%s\n",
			c.Rank,
			c.FitScore,
			c.Confidence,
			name,
			c.BusinessModel,
			strings.Join(c.Industries, ","),
			qualified,
		)
	}
	_ = w.Flush()
}

func formatResultsCSV(out io.Writer, scored []*model.ScoredCompany) error {
	w := csv.NewWriter(out)
	header := []string{
		"rank", "fit_score", "confidence", "name", "website",
		"business_model", "industries", "employees", "revenue",
		"location", "qualified", "failed_filters", "disqualification_reasons",
	}
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "write csv header")
	}

	for _, c := range scored {
		employees := ""
		if c.EmployeesEstimate != nil {
			employees = fmt.Sprintf("%d", *c.EmployeesEstimate)
		}
		revenue := ""
		if c.RevenueEstimate != nil {
			revenue = fmt.Sprintf("%d", *c.RevenueEstimate)
		}
		record := []string{
			fmt.Sprintf("%d", c.Rank),
			fmt.Sprintf("%.1f", c.FitScore),
			fmt.Sprintf("%.2f", c.Confidence),
			c.Name,
			c.Website,
			c.BusinessModel,
			strings.Join(c.Industries, ";"),
			employees,
			revenue,
			c.Location,
			fmt.Sprintf("%t", c.PassedFilters && !c.IsDisqualified),
			strings.Join(c.FailedFilters, ";"),
			strings.Join(c.DisqualificationReasons, ";"),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "write csv record")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "flush csv")
}
