package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// HandleAnalysePDF handles POST /api/ai/analyse-pdf.
func (h *Handlers) HandleAnalysePDF(w http.ResponseWriter, r *http.Request) {
	if h.analysisSvc == nil {
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeInternalError, "pdf analysis is not configured")
		return
	}

	var req model.AnalysePDFRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.PDFURL) == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "pdfUrl is required")
		return
	}
	if u, err := url.Parse(req.PDFURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "pdfUrl must be an http(s) URL")
		return
	}

	rating, err := h.analysisSvc.AnalysePDF(r.Context(), req.PDFURL)
	if err != nil {
		h.logger.Error("pdf analysis failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeUpstreamFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.AnalysePDFResponse{Rating: rating})
}
