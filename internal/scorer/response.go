package scorer

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/MiguelVicente16/augusta-tech-challenge/internal/model"
	"github.com/MiguelVicente16/augusta-tech-challenge/pkg/llm"
)

// scoredEntry mirrors the JSON schema the rubric prompt requests.
type scoredEntry struct {
	CompanyID         int64    `json:"company_id"`
	StrategicFit      *float64 `json:"strategic_fit"`
	Quality           *float64 `json:"quality"`
	ExecutionCapacity *float64 `json:"execution_capacity"`
	Rationale         string   `json:"rationale"`
}

// parseResponse validates one partition's model output. Entries that are
// structurally invalid, reference companies outside the partition, duplicate
// a company, or carry out-of-range scores are dropped individually; the
// invalid count is reported so the run can surface it. A response that is
// not a JSON array at all fails the whole partition.
func parseResponse(text string, incentiveID int64, allowed map[int64]bool) ([]model.CandidateScore, int, error) {
	cleaned := cleanJSONArray(text)

	var entries []scoredEntry
	if err := json.Unmarshal([]byte(cleaned), &entries); err != nil {
		return nil, 0, eris.Wrapf(llm.ErrMalformedResponse, "scorer: decode partition response: %v", err)
	}

	scores := make([]model.CandidateScore, 0, len(entries))
	seen := make(map[int64]bool, len(entries))
	invalid := 0

	for _, e := range entries {
		if !allowed[e.CompanyID] || seen[e.CompanyID] {
			invalid++
			zap.L().Warn("scorer: dropping entry for unknown or duplicate company",
				zap.Int64("incentive_id", incentiveID),
				zap.Int64("company_id", e.CompanyID),
			)
			continue
		}
		if e.StrategicFit == nil || e.Quality == nil || e.ExecutionCapacity == nil {
			invalid++
			seen[e.CompanyID] = true
			zap.L().Warn("scorer: dropping entry with missing sub-score",
				zap.Int64("incentive_id", incentiveID),
				zap.Int64("company_id", e.CompanyID),
			)
			continue
		}

		score := model.CandidateScore{
			IncentiveID:       incentiveID,
			CompanyID:         e.CompanyID,
			StrategicFit:      *e.StrategicFit,
			Quality:           *e.Quality,
			ExecutionCapacity: *e.ExecutionCapacity,
			Rationale:         strings.TrimSpace(e.Rationale),
		}
		if err := score.Validate(); err != nil {
			invalid++
			seen[e.CompanyID] = true
			zap.L().Warn("scorer: dropping out-of-range entry",
				zap.Int64("incentive_id", incentiveID),
				zap.Int64("company_id", e.CompanyID),
				zap.Error(err),
			)
			continue
		}

		seen[e.CompanyID] = true
		scores = append(scores, score)
	}

	return scores, invalid, nil
}

// cleanJSONArray strips markdown fences and surrounding prose so the body
// parses as a bare JSON array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
