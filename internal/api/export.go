package api

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/ma-discovery/internal/model"
)

// exportColumns defines the spreadsheet layout, in order.
var exportColumns = []string{
	"Rank",
	"Fit Score",
	"Confidence",
	"Company",
	"Website",
	"Industry",
	"Business Model",
	"Employees",
	"Revenue",
	"Location",
	"Qualified",
	"Failed Filters",
	"Disqualification Reasons",
	"Match Summary",
}

// WriteXLSX writes ranked results as a single-sheet workbook.
func WriteXLSX(w io.Writer, results []*model.ScoredCompany) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Targets")
	if err != nil {
		return eris.Wrap(err, "api: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range exportColumns {
		header.AddCell().Value = col
	}

	for _, c := range results {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.Rank)
		row.AddCell().SetFloatWithFormat(c.FitScore, "0.0")
		row.AddCell().SetFloatWithFormat(c.Confidence, "0.00")
		row.AddCell().Value = c.Name
		row.AddCell().Value = c.Website
		row.AddCell().Value = strings.Join(c.Industries, ", ")
		row.AddCell().Value = c.BusinessModel
		row.AddCell().Value = intCell(c.EmployeesEstimate)
		row.AddCell().Value = revenueCell(c.RevenueEstimate, c.RevenueIsEstimate)
		row.AddCell().Value = c.Location
		row.AddCell().SetBool(c.PassedFilters && !c.IsDisqualified)
		row.AddCell().Value = strings.Join(c.FailedFilters, "; ")
		row.AddCell().Value = strings.Join(c.DisqualificationReasons, "; ")
		row.AddCell().Value = strings.Join(c.MatchSummary, "; ")
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "api: write workbook")
	}
	return nil
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func revenueCell(v *int64, estimated bool) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("$%d", *v)
	if estimated {
		s += " (est)"
	}
	return s
}
