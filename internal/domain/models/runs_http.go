package models

// Requests for the runs HTTP endpoints. Defined in domain for consistency and reuse.

// SubmitRunRequest submits a tuning run. Window and sampler fields override the
// configured defaults when non-zero; From/To bound the panel query.
type SubmitRunRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Lookback int    `json:"lookback" validate:"gte=0"`
	Assess   int    `json:"assess" validate:"gte=0"`
	Step     int    `json:"step" validate:"gte=0"`
	Size     int    `json:"size" validate:"gte=0,lte=10000"`
	Seed     int    `json:"seed" validate:"gte=0"`
	Metric   string `json:"metric" default:"auc" validate:"oneof=auc accuracy"`
}

// SubmitRunResponse acknowledges a queued run.
type SubmitRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}
