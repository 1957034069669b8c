package server

import (
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
	"github.com/maheshwarisharman/sih-ayurveda/internal/service/batches"
	"github.com/maheshwarisharman/sih-ayurveda/internal/storage"
)

// HandleCreateBatch handles POST /api/batches/create.
// The batch lives on the ledger; the store only sees it once stage
// events arrive.
func (h *Handlers) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req model.CreateBatchRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.BatchName) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "batchName is required")
		return
	}

	batchID, err := h.batchSvc.CreateBatch(r.Context(), req.BatchName)
	if err != nil {
		h.logger.Error("create batch failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.CreateBatchResponse{
		BatchID: batchID,
		Message: "Batch created successfully",
	})
}

// HandleAddStageEvent handles POST /api/batches/add-stage-event.
func (h *Handlers) HandleAddStageEvent(w http.ResponseWriter, r *http.Request) {
	var req model.AddStageEventRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if !validBatchID(req.FormattedBatchID) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "formatted_batch_id must be a decimal batch id")
		return
	}
	if req.StageType == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "stage_type is required")
		return
	}

	event, err := h.batchSvc.RecordStage(r.Context(), req.FormattedBatchID, req.StageType, req.Metadata)
	if err != nil {
		if errors.Is(err, batches.ErrInvalidStageKind) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
			return
		}
		h.logger.Error("add stage event failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, model.AddStageEventResponse{
		Message:   "Stage event added successfully",
		Data:      event,
		BatchHash: event.MetadataHash,
	})
}

// HandleBatchStages handles GET /api/batches/batch-stages/{formatted_batch_id}.
// Unknown batches yield an empty stage list, not a 404.
func (h *Handlers) HandleBatchStages(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("formatted_batch_id")
	if !validBatchID(batchID) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "formatted_batch_id must be a decimal batch id")
		return
	}

	stages, summary, err := h.batchSvc.GetBatchStages(r.Context(), batchID)
	if err != nil {
		h.logger.Error("get batch stages failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.BatchStagesResponse{
		BatchID:          batchID,
		FormattedBatchID: batchID,
		Stages:           stages,
		Summary:          summary,
	})
}

// HandleUploadReport handles POST /api/batches/upload-report.
// Expects a multipart form with a "file" part and a "formatted_batch_id" field.
func (h *Handlers) HandleUploadReport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid multipart form: "+err.Error())
		return
	}

	batchID := r.FormValue("formatted_batch_id")
	if !validBatchID(batchID) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "formatted_batch_id must be a decimal batch id")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileURL, err := h.batchSvc.UploadReport(r.Context(), batchID, header.Filename, contentType, data)
	if err != nil {
		h.logger.Error("upload report failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, model.UploadReportResponse{
		Message: "Report uploaded successfully",
		FileURL: fileURL,
	})
}

// HandleGetReport handles GET /api/batches/reports/{report_id}.
func (h *Handlers) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("report_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "report_id must be a UUID")
		return
	}

	report, err := h.batchSvc.GetReport(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "report not found")
			return
		}
		h.logger.Error("get report failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+report.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report.Data)
}

// validBatchID reports whether s is a non-negative decimal integer,
// the form batch ids take on the ledger.
func validBatchID(s string) bool {
	if s == "" {
		return false
	}
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0
}
