package model

// Error codes returned in API error responses.
const (
	ErrCodeInvalidInput    = "invalid_input"
	ErrCodeNotFound        = "not_found"
	ErrCodeUpstreamFailure = "upstream_failure"
	ErrCodeInternalError   = "internal_error"
	ErrCodeRateLimited     = "rate_limited"
)

// APIError is the standard error response envelope.
type APIError struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorDetail carries the machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateBatchRequest is the body of POST /api/batches/create.
type CreateBatchRequest struct {
	BatchName string `json:"batchName"`
}

// CreateBatchResponse acknowledges a ledger batch creation.
type CreateBatchResponse struct {
	BatchID string `json:"batchId"`
	Message string `json:"message"`
}

// AddStageEventRequest is the body of POST /api/batches/add-stage-event.
// Metadata is optional; a missing payload hashes as an empty object.
type AddStageEventRequest struct {
	FormattedBatchID string         `json:"formatted_batch_id"`
	StageType        string         `json:"stage_type"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// AddStageEventResponse acknowledges the store write. BatchHash is the
// metadata hash that will be (best-effort) mirrored to the ledger.
type AddStageEventResponse struct {
	Message   string     `json:"message"`
	Data      StageEvent `json:"data"`
	BatchHash string     `json:"batchHash"`
}

// BatchStagesResponse is the body of GET /api/batches/batch-stages/{id}.
type BatchStagesResponse struct {
	BatchID          string          `json:"batch_id"`
	FormattedBatchID string          `json:"formatted_batch_id"`
	Stages           []VerifiedStage `json:"stages"`
	Summary          BatchSummary    `json:"summary"`
}

// UploadReportResponse is the body of POST /api/batches/upload-report.
type UploadReportResponse struct {
	Message string `json:"message"`
	FileURL string `json:"fileUrl"`
}

// AnalysePDFRequest is the body of POST /api/ai/analyse-pdf.
type AnalysePDFRequest struct {
	PDFURL string `json:"pdfUrl"`
}

// AnalysePDFResponse carries the model's quality rating.
type AnalysePDFResponse struct {
	Rating string `json:"rating"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}
