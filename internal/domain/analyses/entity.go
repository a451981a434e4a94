package analyses

import "time"

// AnalysisID identifier type
type AnalysisID string

// Result is the outcome of one licensing analysis. RiskScore is always within [0, 100].
type Result struct {
	LicensingInfo    string `json:"licensingInfo"`
	LicensingSummary string `json:"licensingSummary"`
	RiskScore        int    `json:"riskScore"`
}

// Analysis is a Result stored against the upload it was computed for.
type Analysis struct {
	ID       AnalysisID `json:"id"`
	UploadID string     `json:"uploadId"`
	UserID   string     `json:"userId"`
	Result
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
