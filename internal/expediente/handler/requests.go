package handler

import (
	"fmt"
	"strings"
	"time"

	"expediente/internal/expediente/analysis"
	"expediente/internal/expediente/chain"
	"expediente/internal/expediente/models"
	dErrors "expediente/pkg/domain-errors"
)

// maxFiles caps one upload.
const maxFiles = 500

// FilesRequest is the body of POST /expedientes and POST /expedientes/{id}/files.
type FilesRequest struct {
	Files []models.RawDocument `json:"files"`
}

// Validate implements httputil.Validatable.
func (r *FilesRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return validateFiles(r.Files)
}

// AnalyzeOptions are the per-request knobs of an analysis. Session analyses
// read them from the query string.
type AnalyzeOptions struct {
	AsOf         string `json:"as_of,omitempty"`
	ReturnPolicy string `json:"return_policy,omitempty"`

	parsedAsOf   time.Time
	parsedPolicy chain.ReturnPolicy
}

// Validate parses as_of (YYYY-MM-DD) and return_policy.
func (o *AnalyzeOptions) Validate() error {
	o.AsOf = strings.TrimSpace(o.AsOf)
	if o.AsOf != "" {
		t, err := time.Parse(time.DateOnly, o.AsOf)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "as_of must be a date in YYYY-MM-DD format")
		}
		o.parsedAsOf = t
	}
	if strings.TrimSpace(o.ReturnPolicy) != "" {
		p, err := chain.ParseReturnPolicy(o.ReturnPolicy)
		if err != nil {
			return err
		}
		o.parsedPolicy = p
	}
	return nil
}

func (o AnalyzeOptions) request(files []models.RawDocument) analysis.Request {
	return analysis.Request{
		Files:        files,
		AsOf:         o.parsedAsOf,
		ReturnPolicy: o.parsedPolicy,
	}
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Files []models.RawDocument `json:"files"`
	AnalyzeOptions
}

// Validate implements httputil.Validatable. An empty file list is accepted
// here; the analysis reports it as a structural failure.
func (r *AnalyzeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Files) > maxFiles {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d files per request", maxFiles))
	}
	return r.AnalyzeOptions.Validate()
}

func validateFiles(files []models.RawDocument) error {
	if len(files) == 0 {
		return dErrors.New(dErrors.CodeValidation, "files is required")
	}
	if len(files) > maxFiles {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d files per request", maxFiles))
	}
	for i := range files {
		files[i].DocumentType = strings.TrimSpace(files[i].DocumentType)
		if files[i].DocumentType == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("files[%d].document_type is required", i))
		}
	}
	return nil
}
