package model

import (
	"encoding/json"
	"time"
)

// StructuredDescription holds the AI-derived structured view of an incentive.
// All list fields preserve their original order.
type StructuredDescription struct {
	Objective           string   `json:"objective"`
	TargetSectors       []string `json:"target_sectors"`
	TargetRegions       []string `json:"target_regions"`
	EligibleActivities  []string `json:"eligible_activities"`
	FundingType         string   `json:"funding_type"`
	KeyRequirements     []string `json:"key_requirements"`
	InnovationFocus     bool     `json:"innovation_focus"`
	SustainabilityFocus bool     `json:"sustainability_focus"`
	DigitalFocus        bool     `json:"digital_transformation_focus"`
}

// Incentive represents a public funding program. The matching engine treats
// it as immutable reference data; only the AI-derived fields are ever
// recomputed, and that happens in the ingestion layer.
type Incentive struct {
	ID                  int64                  `json:"id"`
	IncentiveProjectID  string                 `json:"incentive_project_id,omitempty"`
	Title               string                 `json:"title"`
	Description         string                 `json:"description,omitempty"`
	AIDescription       string                 `json:"ai_description,omitempty"`
	Structured          *StructuredDescription `json:"ai_description_structured,omitempty"`
	EligibilityCriteria map[string]string      `json:"eligibility_criteria,omitempty"`
	TotalBudget         float64                `json:"total_budget,omitempty"`
	DatePublication     *time.Time             `json:"date_publication,omitempty"`
	DateStart           *time.Time             `json:"date_start,omitempty"`
	DateEnd             *time.Time             `json:"date_end,omitempty"`
	SourceLink          string                 `json:"source_link,omitempty"`
}

// ParseStructured decodes a raw JSON structured description column. Rows
// ingested before structured generation hold NULL or malformed fragments;
// both decode to nil rather than failing the whole read.
func ParseStructured(raw []byte) *StructuredDescription {
	if len(raw) == 0 {
		return nil
	}
	var s StructuredDescription
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

// ParseEligibility decodes the eligibility criteria JSON column. Values that
// are not plain strings are flattened via their JSON encoding so the scorer
// prompt can always render key: value lines.
func ParseEligibility(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	out := make(map[string]string, len(generic))
	for k, v := range generic {
		switch val := v.(type) {
		case string:
			out[k] = val
		default:
			b, err := json.Marshal(v)
			if err != nil {
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
