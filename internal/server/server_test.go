package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/async"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
	"github.com/epfo-tools/case-engine/internal/export"
	"github.com/epfo-tools/case-engine/internal/pipeline"
	"github.com/epfo-tools/case-engine/internal/relation"
	"github.com/epfo-tools/case-engine/internal/repository"
)

type stubRepo struct {
	mu      sync.Mutex
	records map[string]*entity.CaseRecord
}

func (s *stubRepo) SaveCase(_ context.Context, rec *entity.CaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string]*entity.CaseRecord{}
	}
	s.records[rec.DocumentID] = rec
	return nil
}

func (s *stubRepo) GetCase(_ context.Context, documentID string) (*entity.CaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[documentID]; ok {
		return rec, nil
	}
	return nil, common.NewAppError("CASE_NOT_FOUND", "no case for document "+documentID, common.ErrNotFound)
}

func (s *stubRepo) ListCases(context.Context, constants.QualityFlag) ([]repository.CaseSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.CaseSummary, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, repository.CaseSummary{
			DocumentID:        rec.DocumentID,
			DocumentType:      rec.DocumentType,
			ComplianceOutcome: rec.ComplianceOutcome,
			GrandTotal:        rec.Ledger.GrandTotal,
			QualityFlags:      rec.QualityFlags,
			CreatedAt:         time.Now().UTC(),
		})
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *stubRepo, *async.Queue) {
	t.Helper()
	cfg := common.ExtractionConfig{
		ReconciliationTolerance: 1.0,
		FailureConfidenceFloor:  0.4,
		LowConfidenceFloor:      0.3,
		ContextWindow:           300,
	}
	proc := pipeline.NewProcessor(cfg, relation.DefaultVocabulary(), nil)
	repo := &stubRepo{}
	queue := async.NewQueue(proc, repo, nil, async.WithWorkers(1))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })
	srv := NewServer(Config{
		Processor: proc,
		Queue:     queue,
		Repo:      repo,
		Exporter:  export.NewService(repo, nil),
	})
	return srv, repo, queue
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}

func TestProcessSyncReturnsRecord(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{
		"document_id": "doc-1",
		"text": "Case ID: 7A/RO-DEL/2021/0042\nA/C 1 EE: 500 ER: 500 Admin: 20 Total: 1020"
	}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/process", strings.NewReader(body))
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "doc-1", got["document_id"])
	assert.Equal(t, "7A", got["document_type"])
	ledger, ok := got["ledger"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1020.0, ledger["grand_total"])
}

func TestProcessSyncEmptyTextIsBadRequest(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/process", strings.NewReader(`{"document_id":"doc-1","text":"  "}`))
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProcessSyncMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/process", strings.NewReader(`{not json`))
	srv.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEnqueuePersistsViaWorker(t *testing.T) {
	srv, repo, queue := newTestServer(t)
	body := `{"document_id":"doc-9","text":"The employer failed to comply with the order."}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/", strings.NewReader(body))
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "doc-9", got["document_id"])
	assert.Equal(t, "QUEUED", got["status"])

	// drain the worker, then the record must be in the store
	queue.Shutdown(context.Background())
	rec, err := repo.GetCase(context.Background(), "doc-9")
	require.NoError(t, err)
	assert.Equal(t, "doc-9", rec.DocumentID)
}

func TestEnqueueGeneratesDocumentID(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/", strings.NewReader(`{"text":"some text"}`))
	srv.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotEmpty(t, got["document_id"])
}

func TestGetCaseNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cases/ghost", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetCaseReturnsStoredRecord(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	require.NoError(t, repo.SaveCase(context.Background(), &entity.CaseRecord{
		DocumentID:        "doc-2",
		DocumentType:      constants.DocType14B,
		ComplianceOutcome: constants.OutcomeUndetermined,
		Ledger:            entity.FinancialLedger{Reconciled: true},
	}))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cases/doc-2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "14B", got["document_type"])
}

func TestListCases(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	require.NoError(t, repo.SaveCase(context.Background(), &entity.CaseRecord{
		DocumentID:        "doc-3",
		DocumentType:      constants.DocType7A,
		ComplianceOutcome: constants.OutcomeCompliant,
		Ledger:            entity.FinancialLedger{GrandTotal: 1020, Reconciled: true},
	}))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cases/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Cases []map[string]any `json:"cases"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	require.Len(t, got.Cases, 1)
	assert.Equal(t, "doc-3", got.Cases[0]["document_id"])
}

func TestExportCaseHeaders(t *testing.T) {
	srv, repo, _ := newTestServer(t)
	require.NoError(t, repo.SaveCase(context.Background(), &entity.CaseRecord{
		DocumentID:        "doc-4",
		DocumentType:      constants.DocType7A,
		ComplianceOutcome: constants.OutcomeCompliant,
		Ledger:            entity.FinancialLedger{Reconciled: true},
	}))

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/cases/doc-4/export.xlsx", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "doc-4.xlsx")
	assert.NotZero(t, rr.Body.Len())
}
