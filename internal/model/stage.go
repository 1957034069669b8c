package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StageKind classifies a provenance event in a batch's lifecycle.
// The numeric codes match the smart contract's stage enumeration and are
// what gets stored and mirrored on chain.
type StageKind int

const (
	StageCollection  StageKind = 0
	StageQualityTest StageKind = 1
	StageProcessing  StageKind = 2
)

// stageKindNames maps the stage_type strings accepted on the wire to codes.
var stageKindNames = map[string]StageKind{
	"CollectionEvent": StageCollection,
	"QualityTest":     StageQualityTest,
	"ProcessingStep":  StageProcessing,
}

// ParseStageKind converts a wire-format stage type string to its code.
func ParseStageKind(s string) (StageKind, error) {
	kind, ok := stageKindNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown stage_type %q (expected CollectionEvent, QualityTest or ProcessingStep)", s)
	}
	return kind, nil
}

// String returns the wire-format name for the stage kind.
func (k StageKind) String() string {
	switch k {
	case StageCollection:
		return "CollectionEvent"
	case StageQualityTest:
		return "QualityTest"
	case StageProcessing:
		return "ProcessingStep"
	}
	return fmt.Sprintf("StageKind(%d)", int(k))
}

// Valid reports whether the kind is one of the fixed enumeration.
func (k StageKind) Valid() bool {
	switch k {
	case StageCollection, StageQualityTest, StageProcessing:
		return true
	}
	return false
}

// Batch is a tracked herb batch. The ID is assigned by the ledger at
// creation and carried everywhere as a decimal string, since the contract's
// native uint256 does not fit in an int64.
type Batch struct {
	ID   string `json:"batch_id"`
	Name string `json:"batch_name"`
}

// StageEvent is an append-only provenance record in the relational store.
// Source of truth for what the caller was acknowledged; the ledger mirror
// is best-effort and may lag or be missing entirely.
type StageEvent struct {
	ID           uuid.UUID      `json:"id"`
	BatchID      string         `json:"formatted_batch_id"`
	EventType    StageKind      `json:"event_type"`
	Metadata     map[string]any `json:"metadata"`
	MetadataHash string         `json:"metadata_hash"`
	CreatedAt    time.Time      `json:"created_at"`
}

// LedgerStage is the contract's own record of a mirrored stage.
// Timestamp is the chain's uint256 block timestamp as a decimal string.
type LedgerStage struct {
	EventType    StageKind `json:"event_type"`
	Timestamp    string    `json:"timestamp"`
	MetadataHash string    `json:"metadata_hash"`
}

// VerifiedStage combines a stored StageEvent with the outcome of the
// two-step verification. Computed on read, never persisted.
type VerifiedStage struct {
	StageEvent
	DataIntegrity   bool         `json:"data_integrity"`
	OnChainVerified bool         `json:"on_chain_verified"`
	Verified        bool         `json:"verified"`
	LedgerStage     *LedgerStage `json:"ledger_stage,omitempty"`
}

// VerificationStatus summarizes a batch's verification outcome.
type VerificationStatus string

const (
	StatusFullyVerified     VerificationStatus = "FULLY_VERIFIED"
	StatusPartiallyVerified VerificationStatus = "PARTIALLY_VERIFIED"
	StatusNotVerified       VerificationStatus = "NOT_VERIFIED"
)

// SummarizeVerification derives the batch-level status from per-stage results.
// An empty stage list is NOT_VERIFIED.
func SummarizeVerification(stages []VerifiedStage) VerificationStatus {
	verified := 0
	for _, s := range stages {
		if s.Verified {
			verified++
		}
	}
	switch {
	case len(stages) == 0 || verified == 0:
		return StatusNotVerified
	case verified == len(stages):
		return StatusFullyVerified
	default:
		return StatusPartiallyVerified
	}
}

// BatchSummary is the aggregate block returned alongside the stage list.
type BatchSummary struct {
	TotalStages        int                `json:"total_stages"`
	VerifiedStages     int                `json:"verified_stages"`
	VerificationStatus VerificationStatus `json:"verification_status"`
}

// Report is an uploaded lab-report file stored as a blob.
type Report struct {
	ID          uuid.UUID `json:"id"`
	BatchID     string    `json:"formatted_batch_id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
