package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/async"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/export"
	"github.com/epfo-tools/case-engine/internal/normalize"
	"github.com/epfo-tools/case-engine/internal/pipeline"
	"github.com/epfo-tools/case-engine/internal/schema"
)

// caseRequestBody is the inbound contract: raw OCR text plus the
// upstream NER and parser outputs, all injected values.
type caseRequestBody struct {
	DocumentID string              `json:"document_id"`
	Text       string              `json:"text"`
	Entities   []entity.EntitySpan `json:"entities"`
	Metadata   *metadataBody       `json:"metadata"`
}

type metadataBody struct {
	CaseID    string `json:"case_id"`
	OrderDate string `json:"order_date"`
}

func (b *caseRequestBody) toProcessRequest() pipeline.ProcessRequest {
	req := pipeline.ProcessRequest{
		DocumentID: b.DocumentID,
		RawText:    b.Text,
		Entities:   b.Entities,
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}
	if b.Metadata != nil {
		meta := entity.Metadata{CaseID: b.Metadata.CaseID}
		if b.Metadata.OrderDate != "" {
			if t, ok := normalize.ParseDate(b.Metadata.OrderDate); ok {
				meta.OrderDate = &t
			} else if t, err := time.Parse("2006-01-02", b.Metadata.OrderDate); err == nil {
				meta.OrderDate = &t
			}
		}
		req.Meta = &meta
	}
	return req
}

func (s *Server) decodeCaseRequest(r *http.Request) (pipeline.ProcessRequest, error) {
	var body caseRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.ProcessRequest{}, common.NewAppError("BAD_REQUEST", "malformed request body", common.ErrInvalidInput)
	}
	return body.toProcessRequest(), nil
}

// handleProcessSync runs extraction inline and returns the record
// without persisting it. The caller owns the result.
func (s *Server) handleProcessSync(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCaseRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := s.proc.Process(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := schema.Marshal(rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleEnqueue accepts a document for background extraction; the
// record lands in the case store when the worker finishes.
func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeCaseRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	job := async.Job{Request: req, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(r.Context())}
	if err := s.queue.Enqueue(r.Context(), job); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"document_id": req.DocumentID,
		"status":      string(constants.JobStatusQueued),
	})
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	rec, err := s.repo.GetCase(r.Context(), documentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := schema.Marshal(rec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	flag := constants.QualityFlag(r.URL.Query().Get("flag"))
	cases, err := s.repo.ListCases(r.Context(), flag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	type summaryBody struct {
		DocumentID        string   `json:"document_id"`
		DocumentType      string   `json:"document_type"`
		ComplianceOutcome string   `json:"compliance_outcome"`
		GrandTotal        float64  `json:"grand_total"`
		QualityFlags      []string `json:"quality_flags"`
	}
	out := make([]summaryBody, 0, len(cases))
	for _, c := range cases {
		flags := make([]string, 0, len(c.QualityFlags))
		for _, f := range c.QualityFlags {
			flags = append(flags, string(f))
		}
		out = append(out, summaryBody{
			DocumentID:        c.DocumentID,
			DocumentType:      string(c.DocumentType),
			ComplianceOutcome: string(c.ComplianceOutcome),
			GrandTotal:        c.GrandTotal,
			QualityFlags:      flags,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cases": out, "count": len(out)})
}

func (s *Server) handleExportCase(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "documentID")
	data, err := s.exporter.ExportCaseXLSX(r.Context(), documentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.SafeFilename(documentID)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
