package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/epfo-tools/case-engine/constants"
	"github.com/epfo-tools/case-engine/internal/common"
	"github.com/epfo-tools/case-engine/internal/entity"
)

// CaseSummary is the listing row: enough for the dashboard to decide
// which records need a human look.
type CaseSummary struct {
	DocumentID        string
	DocumentType      constants.DocumentType
	ComplianceOutcome constants.ComplianceOutcome
	GrandTotal        float64
	QualityFlags      []constants.QualityFlag
	CreatedAt         time.Time
}

type CaseRepository interface {
	SaveCase(ctx context.Context, rec *entity.CaseRecord) error
	GetCase(ctx context.Context, documentID string) (*entity.CaseRecord, error)
	ListCases(ctx context.Context, flag constants.QualityFlag) ([]CaseSummary, error)
}

type caseRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCaseRepository(db *sql.DB, logger *slog.Logger) CaseRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &caseRepository{db: db, logger: logger}
}

// InitSchema creates the case tables. Idempotent; shared between the
// Postgres server store and the CLI's embedded sqlite store, so only
// portable SQL appears here.
func InitSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cases (
			document_id        TEXT PRIMARY KEY,
			document_type      TEXT NOT NULL,
			compliance_outcome TEXT NOT NULL,
			grand_total        DOUBLE PRECISION NOT NULL,
			declared_total     DOUBLE PRECISION,
			reconciled         BOOLEAN NOT NULL,
			quality_flags      TEXT NOT NULL,
			created_at         TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_lines (
			document_id  TEXT NOT NULL,
			position     INTEGER NOT NULL,
			account_code TEXT NOT NULL,
			ee_share     DOUBLE PRECISION NOT NULL,
			er_share     DOUBLE PRECISION NOT NULL,
			admin_charge DOUBLE PRECISION NOT NULL,
			damages      DOUBLE PRECISION NOT NULL,
			total        DOUBLE PRECISION NOT NULL,
			residual     DOUBLE PRECISION NOT NULL,
			mismatch     BOOLEAN NOT NULL,
			source_line  INTEGER NOT NULL,
			PRIMARY KEY (document_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS hearing_events (
			document_id TEXT NOT NULL,
			position    INTEGER NOT NULL,
			event_date  TEXT,
			kind        TEXT NOT NULL,
			reason      TEXT NOT NULL,
			source_line INTEGER NOT NULL,
			PRIMARY KEY (document_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS relations (
			document_id TEXT NOT NULL,
			position    INTEGER NOT NULL,
			actor       TEXT NOT NULL,
			predicate   TEXT NOT NULL,
			object      TEXT NOT NULL,
			confidence  DOUBLE PRECISION NOT NULL,
			source_line INTEGER NOT NULL,
			PRIMARY KEY (document_id, position)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return common.WrapError(err, "init schema")
		}
	}
	return nil
}

// SaveCase writes a full record in one transaction, replacing any
// previous version of the document. Nothing is committed on error.
func (r *caseRepository) SaveCase(ctx context.Context, rec *entity.CaseRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin save case")
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"relations", "hearing_events", "schedule_lines", "cases"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE document_id = $1`, rec.DocumentID); err != nil {
			return common.WrapError(err, "clear previous case")
		}
	}

	flags := make([]string, len(rec.QualityFlags))
	for i, f := range rec.QualityFlags {
		flags[i] = string(f)
	}
	var declared any
	if rec.Ledger.DeclaredTotal != nil {
		declared = *rec.Ledger.DeclaredTotal
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cases (document_id, document_type, compliance_outcome, grand_total, declared_total, reconciled, quality_flags, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.DocumentID, string(rec.DocumentType), string(rec.ComplianceOutcome),
		rec.Ledger.GrandTotal, declared, rec.Ledger.Reconciled,
		strings.Join(flags, ","), time.Now().UTC(),
	); err != nil {
		return common.WrapError(err, "insert case")
	}

	for i, row := range rec.Ledger.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_lines (document_id, position, account_code, ee_share, er_share, admin_charge, damages, total, residual, mismatch, source_line)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			rec.DocumentID, i, row.AccountCode, row.EEShare, row.ERShare,
			row.AdminCharge, row.Damages, row.Total, row.Residual, row.Mismatch, row.SourceLine,
		); err != nil {
			return common.WrapError(err, "insert schedule line")
		}
	}

	for i, ev := range rec.Timeline {
		var date any
		if ev.Date != nil {
			date = ev.Date.Format("2006-01-02")
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hearing_events (document_id, position, event_date, kind, reason, source_line)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			rec.DocumentID, i, date, string(ev.Kind), ev.Reason, ev.SourceLine,
		); err != nil {
			return common.WrapError(err, "insert hearing event")
		}
	}

	for i, rel := range rec.Relations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relations (document_id, position, actor, predicate, object, confidence, source_line)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.DocumentID, i, rel.Actor, string(rel.Predicate), rel.Object, rel.Confidence, rel.SupportingLine,
		); err != nil {
			return common.WrapError(err, "insert relation")
		}
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(err, "commit save case")
	}
	r.logger.Info("saved case", "document_id", rec.DocumentID)
	return nil
}

func (r *caseRepository) GetCase(ctx context.Context, documentID string) (*entity.CaseRecord, error) {
	rec := &entity.CaseRecord{DocumentID: documentID}

	var docType, outcome, flagsCSV string
	var declared sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT document_type, compliance_outcome, grand_total, declared_total, reconciled, quality_flags
		 FROM cases WHERE document_id = $1`, documentID,
	).Scan(&docType, &outcome, &rec.Ledger.GrandTotal, &declared, &rec.Ledger.Reconciled, &flagsCSV)
	if err == sql.ErrNoRows {
		return nil, common.NewAppError("CASE_NOT_FOUND", "no case for document "+documentID, common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "query case")
	}
	rec.DocumentType = constants.DocumentType(docType)
	rec.ComplianceOutcome = constants.ComplianceOutcome(outcome)
	if declared.Valid {
		rec.Ledger.DeclaredTotal = &declared.Float64
	}
	for _, f := range strings.Split(flagsCSV, ",") {
		if f != "" {
			rec.QualityFlags = append(rec.QualityFlags, constants.QualityFlag(f))
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT account_code, ee_share, er_share, admin_charge, damages, total, residual, mismatch, source_line
		 FROM schedule_lines WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, common.WrapError(err, "query schedule lines")
	}
	defer rows.Close()
	for rows.Next() {
		var sl entity.ScheduleLine
		if err := rows.Scan(&sl.AccountCode, &sl.EEShare, &sl.ERShare, &sl.AdminCharge,
			&sl.Damages, &sl.Total, &sl.Residual, &sl.Mismatch, &sl.SourceLine); err != nil {
			return nil, common.WrapError(err, "scan schedule line")
		}
		rec.Ledger.Rows = append(rec.Ledger.Rows, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate schedule lines")
	}

	evRows, err := r.db.QueryContext(ctx,
		`SELECT event_date, kind, reason, source_line
		 FROM hearing_events WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, common.WrapError(err, "query hearing events")
	}
	defer evRows.Close()
	for evRows.Next() {
		var ev entity.HearingEvent
		var date sql.NullString
		var kind string
		if err := evRows.Scan(&date, &kind, &ev.Reason, &ev.SourceLine); err != nil {
			return nil, common.WrapError(err, "scan hearing event")
		}
		ev.Kind = constants.EventKind(kind)
		if date.Valid {
			if t, perr := time.Parse("2006-01-02", date.String); perr == nil {
				ev.Date = &t
			}
		}
		rec.Timeline = append(rec.Timeline, ev)
	}
	if err := evRows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate hearing events")
	}

	relRows, err := r.db.QueryContext(ctx,
		`SELECT actor, predicate, object, confidence, source_line
		 FROM relations WHERE document_id = $1 ORDER BY position`, documentID)
	if err != nil {
		return nil, common.WrapError(err, "query relations")
	}
	defer relRows.Close()
	for relRows.Next() {
		var rel entity.Relation
		var predicate string
		if err := relRows.Scan(&rel.Actor, &predicate, &rel.Object, &rel.Confidence, &rel.SupportingLine); err != nil {
			return nil, common.WrapError(err, "scan relation")
		}
		rel.Predicate = constants.Predicate(predicate)
		rec.Relations = append(rec.Relations, rel)
	}
	if err := relRows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate relations")
	}

	return rec, nil
}

func (r *caseRepository) ListCases(ctx context.Context, flag constants.QualityFlag) ([]CaseSummary, error) {
	query := `SELECT document_id, document_type, compliance_outcome, grand_total, quality_flags, created_at
	          FROM cases`
	args := []any{}
	if flag != "" {
		query += ` WHERE quality_flags LIKE $1`
		args = append(args, "%"+string(flag)+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "list cases")
	}
	defer rows.Close()

	var out []CaseSummary
	for rows.Next() {
		var s CaseSummary
		var docType, outcome, flagsCSV string
		if err := rows.Scan(&s.DocumentID, &docType, &outcome, &s.GrandTotal, &flagsCSV, &s.CreatedAt); err != nil {
			return nil, common.WrapError(err, "scan case summary")
		}
		s.DocumentType = constants.DocumentType(docType)
		s.ComplianceOutcome = constants.ComplianceOutcome(outcome)
		for _, f := range strings.Split(flagsCSV, ",") {
			if f != "" {
				s.QualityFlags = append(s.QualityFlags, constants.QualityFlag(f))
			}
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "iterate case summaries")
	}
	return out, nil
}
