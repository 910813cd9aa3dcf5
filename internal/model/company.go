package model

// Company represents one Portuguese company from the reference population.
// Immutable for the duration of a matching run.
type Company struct {
	ID               int64  `json:"id"`
	Name             string `json:"company_name"`
	CAELabel         string `json:"cae_primary_label,omitempty"`
	TradeDescription string `json:"trade_description_native,omitempty"`
	Website          string `json:"website,omitempty"`
}
