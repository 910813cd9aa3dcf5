// Package export renders persisted match sets as CSV or XLSX for analysts.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/internal/store"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatXLSX:
		return Format(s), nil
	}
	return "", eris.Errorf("export: unsupported format %q (want csv or xlsx)", s)
}

var header = []string{
	"incentive_id",
	"company_id",
	"rank",
	"score",
	"strategic_fit",
	"quality",
	"execution_capacity",
	"rationale",
}

// Write dumps all persisted matches to w in the requested format. Rows come
// out ordered by incentive then rank, as the store returns them.
func Write(ctx context.Context, st store.Store, w io.Writer, format Format) error {
	matches, err := st.AllMatches(ctx)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, matches)
	case FormatXLSX:
		return writeXLSX(w, matches)
	}
	return eris.Errorf("export: unsupported format %q", format)
}

func writeCSV(w io.Writer, matches []model.Match) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, m := range matches {
		if err := cw.Write(csvRow(m)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func csvRow(m model.Match) []string {
	return []string{
		strconv.FormatInt(m.IncentiveID, 10),
		strconv.FormatInt(m.CompanyID, 10),
		strconv.Itoa(m.RankPosition),
		formatScore(m.Score),
		formatScore(m.Reasoning.StrategicFit),
		formatScore(m.Reasoning.Quality),
		formatScore(m.Reasoning.ExecutionCapacity),
		m.Reasoning.Rationale,
	}
}

func writeXLSX(w io.Writer, matches []model.Match) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Matches")
	if err != nil {
		return eris.Wrap(err, "export: add xlsx sheet")
	}

	hr := sheet.AddRow()
	for _, col := range header {
		hr.AddCell().SetString(col)
	}

	for _, m := range matches {
		row := sheet.AddRow()
		row.AddCell().SetInt64(m.IncentiveID)
		row.AddCell().SetInt64(m.CompanyID)
		row.AddCell().SetInt(m.RankPosition)
		row.AddCell().SetFloat(m.Score)
		row.AddCell().SetFloat(m.Reasoning.StrategicFit)
		row.AddCell().SetFloat(m.Reasoning.Quality)
		row.AddCell().SetFloat(m.Reasoning.ExecutionCapacity)
		row.AddCell().SetString(m.Reasoning.Rationale)
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// formatScore keeps two decimals, matching how scores are reported elsewhere.
func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
