// Package analysis rates uploaded lab-report PDFs. It downloads the
// document, extracts its text and asks a generative model for a quality
// rating constrained to a five-value scale.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Ratings is the closed set of values the model is allowed to answer with.
var Ratings = []string{"extremely good", "good", "healthy", "bad", "very bad"}

// Rater turns report text into a quality rating. *GeminiRater is the real
// implementation; tests substitute a double.
type Rater interface {
	Rate(ctx context.Context, text string) (string, error)
}

// Service downloads a PDF, extracts its text and forwards it to the rater.
// No step is retried; any failure surfaces to the caller as-is.
type Service struct {
	client   *http.Client
	rater    Rater
	logger   *slog.Logger
	maxBytes int64

	// extractText is swappable for tests; defaults to PDF extraction.
	extractText func([]byte) (string, error)
}

// New creates the analysis service. maxBytes caps how much of a remote PDF
// is read; zero applies a 20 MB default.
func New(client *http.Client, rater Rater, logger *slog.Logger, maxBytes int64) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Service{
		client:      client,
		rater:       rater,
		logger:      logger,
		maxBytes:    maxBytes,
		extractText: ExtractPDFText,
	}
}

// AnalysePDF fetches the document at pdfURL, extracts its text and returns
// the model's rating.
func (s *Service) AnalysePDF(ctx context.Context, pdfURL string) (string, error) {
	data, err := s.fetch(ctx, pdfURL)
	if err != nil {
		return "", err
	}

	text, err := s.extractText(data)
	if err != nil {
		return "", fmt.Errorf("analysis: extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("analysis: document at %s contains no extractable text", pdfURL)
	}

	rating, err := s.rater.Rate(ctx, text)
	if err != nil {
		return "", fmt.Errorf("analysis: rate report: %w", err)
	}

	s.logger.Info("lab report analysed", "url", pdfURL, "bytes", len(data), "rating", rating)
	return rating, nil
}

func (s *Service) fetch(ctx context.Context, pdfURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis: fetch %s: %w", pdfURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analysis: fetch %s: unexpected status %d", pdfURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("analysis: read body: %w", err)
	}
	return data, nil
}

// ExtractPDFText pulls plain text out of a PDF payload.
func ExtractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("parse pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}
