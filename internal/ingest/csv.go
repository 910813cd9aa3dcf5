// Package ingest loads incentive and company reference data from CSV dumps.
// Rows that fail validation are skipped with a warning instead of failing the
// whole load; the source exports are known to contain ragged rows.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
)

// Result summarizes one CSV load.
type Result struct {
	Loaded  int
	Skipped int
}

// ReadIncentives parses an incentives CSV export. Required columns: id,
// title. Optional columns are parsed leniently; malformed JSON or dates
// degrade to empty values on that row.
func ReadIncentives(path string) ([]model.Incentive, Result, error) {
	rows, idx, err := readAll(path)
	if err != nil {
		return nil, Result{}, err
	}

	var (
		incentives []model.Incentive
		res        Result
	)
	for i, row := range rows {
		get := func(col string) string { return field(row, idx, col) }

		id, err := strconv.ParseInt(get("id"), 10, 64)
		if err != nil {
			zap.L().Warn("ingest: skipping incentive row without numeric id", zap.Int("row", i+2))
			res.Skipped++
			continue
		}
		title := strings.TrimSpace(get("title"))
		if title == "" {
			zap.L().Warn("ingest: skipping incentive row without title", zap.Int("row", i+2), zap.Int64("id", id))
			res.Skipped++
			continue
		}

		inc := model.Incentive{
			ID:                  id,
			IncentiveProjectID:  strings.TrimSpace(get("incentive_project_id")),
			Title:               title,
			Description:         strings.TrimSpace(get("description")),
			AIDescription:       strings.TrimSpace(get("ai_description")),
			Structured:          model.ParseStructured([]byte(get("ai_description_structured"))),
			EligibilityCriteria: model.ParseEligibility([]byte(get("eligibility_criteria"))),
			TotalBudget:         parseBudget(get("total_budget")),
			DatePublication:     parseDate(get("date_publication")),
			DateStart:           parseDate(get("date_start")),
			DateEnd:             parseDate(get("date_end")),
			SourceLink:          strings.TrimSpace(get("source_link")),
		}
		incentives = append(incentives, inc)
		res.Loaded++
	}
	return incentives, res, nil
}

// ReadCompanies parses a companies CSV export. Required columns: id,
// company_name.
func ReadCompanies(path string) ([]model.Company, Result, error) {
	rows, idx, err := readAll(path)
	if err != nil {
		return nil, Result{}, err
	}

	var (
		companies []model.Company
		res       Result
	)
	for i, row := range rows {
		get := func(col string) string { return field(row, idx, col) }

		id, err := strconv.ParseInt(get("id"), 10, 64)
		if err != nil {
			zap.L().Warn("ingest: skipping company row without numeric id", zap.Int("row", i+2))
			res.Skipped++
			continue
		}
		name := strings.TrimSpace(get("company_name"))
		if name == "" {
			zap.L().Warn("ingest: skipping company row without name", zap.Int("row", i+2), zap.Int64("id", id))
			res.Skipped++
			continue
		}

		companies = append(companies, model.Company{
			ID:               id,
			Name:             name,
			CAELabel:         strings.TrimSpace(get("cae_primary_label")),
			TradeDescription: strings.TrimSpace(get("trade_description_native")),
			Website:          strings.TrimSpace(get("website")),
		})
		res.Loaded++
	}
	return companies, res, nil
}

// readAll loads the file and builds a header index. FieldsPerRecord is
// disabled because source exports occasionally carry ragged rows.
func readAll(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read csv header")
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "ingest: read csv row")
		}
		rows = append(rows, row)
	}
	return rows, idx, nil
}

func field(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseBudget strips currency formatting before parsing. Unparseable values
// become zero.
func parseBudget(s string) float64 {
	cleaned := strings.NewReplacer(",", "", "€", "", "$", "").Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

var dateLayouts = []string{
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02.01.2006",
	"2006.01.02",
}

// parseDate tries the date formats seen in the source exports. Unparseable
// values become nil.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
