// Package schema owns the wire shape of a case record: the exact
// serialization contract promised to the API, dashboard and storage
// consumers, plus its JSON-Schema validation.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/epfo-tools/case-engine/internal/entity"
)

// Wire DTOs. Field sets are exact: nothing extra leaks out, nothing
// promised is omitted.

type WireScheduleLine struct {
	AccountCode string  `json:"account_code"`
	EEShare     float64 `json:"ee_share"`
	ERShare     float64 `json:"er_share"`
	AdminCharge float64 `json:"admin_charge"`
	Damages     float64 `json:"damages"`
	Total       float64 `json:"total"`
}

type WireLedger struct {
	Rows          []WireScheduleLine `json:"rows"`
	GrandTotal    float64            `json:"grand_total"`
	DeclaredTotal *float64           `json:"declared_total"`
	Reconciled    bool               `json:"reconciled"`
}

type WireHearingEvent struct {
	Date       *string `json:"date"`
	Kind       string  `json:"kind"`
	Reason     string  `json:"reason"`
	SourceLine int     `json:"source_line"`
}

type WireRelation struct {
	Actor      string  `json:"actor"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
}

type WireCaseRecord struct {
	DocumentID        string             `json:"document_id"`
	DocumentType      string             `json:"document_type"`
	Ledger            WireLedger         `json:"ledger"`
	Timeline          []WireHearingEvent `json:"timeline"`
	Relations         []WireRelation     `json:"relations"`
	ComplianceOutcome string             `json:"compliance_outcome"`
	QualityFlags      []string           `json:"quality_flags"`
}

// ToWire maps a case record onto the wire shape. Dates serialize as
// ISO date strings; an unparseable date stays an explicit null.
func ToWire(rec *entity.CaseRecord) WireCaseRecord {
	w := WireCaseRecord{
		DocumentID:        rec.DocumentID,
		DocumentType:      string(rec.DocumentType),
		ComplianceOutcome: string(rec.ComplianceOutcome),
		Ledger: WireLedger{
			Rows:          make([]WireScheduleLine, 0, len(rec.Ledger.Rows)),
			GrandTotal:    rec.Ledger.GrandTotal,
			DeclaredTotal: rec.Ledger.DeclaredTotal,
			Reconciled:    rec.Ledger.Reconciled,
		},
		Timeline:     make([]WireHearingEvent, 0, len(rec.Timeline)),
		Relations:    make([]WireRelation, 0, len(rec.Relations)),
		QualityFlags: make([]string, 0, len(rec.QualityFlags)),
	}
	for _, r := range rec.Ledger.Rows {
		w.Ledger.Rows = append(w.Ledger.Rows, WireScheduleLine{
			AccountCode: r.AccountCode,
			EEShare:     r.EEShare,
			ERShare:     r.ERShare,
			AdminCharge: r.AdminCharge,
			Damages:     r.Damages,
			Total:       r.Total,
		})
	}
	for _, ev := range rec.Timeline {
		var date *string
		if ev.Date != nil {
			s := ev.Date.Format("2006-01-02")
			date = &s
		}
		w.Timeline = append(w.Timeline, WireHearingEvent{
			Date:       date,
			Kind:       string(ev.Kind),
			Reason:     ev.Reason,
			SourceLine: ev.SourceLine,
		})
	}
	for _, r := range rec.Relations {
		w.Relations = append(w.Relations, WireRelation{
			Actor:      r.Actor,
			Predicate:  string(r.Predicate),
			Object:     r.Object,
			Confidence: r.Confidence,
		})
	}
	for _, f := range rec.QualityFlags {
		w.QualityFlags = append(w.QualityFlags, string(f))
	}
	return w
}

// BuildCaseRecordSchema returns the wire contract as a JSON-Schema
// (draft 2020-12 subset) generic map.
func BuildCaseRecordSchema() map[string]any {
	obj := func(props map[string]any, required ...string) map[string]any {
		return map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
			"required":             required,
		}
	}
	amount := map[string]any{"type": "number"}
	row := obj(map[string]any{
		"account_code": map[string]any{"type": "string"},
		"ee_share":     amount,
		"er_share":     amount,
		"admin_charge": amount,
		"damages":      amount,
		"total":        amount,
	}, "account_code", "ee_share", "er_share", "admin_charge", "damages", "total")
	event := obj(map[string]any{
		"date":        map[string]any{"type": []string{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"kind":        map[string]any{"type": "string", "enum": []string{"HEARING", "ADJOURNMENT", "ORDER", "UNKNOWN"}},
		"reason":      map[string]any{"type": "string"},
		"source_line": map[string]any{"type": "integer", "minimum": 0},
	}, "date", "kind", "reason", "source_line")
	rel := obj(map[string]any{
		"actor":      map[string]any{"type": "string"},
		"predicate":  map[string]any{"type": "string", "enum": []string{"DIRECTIVE", "FAILURE", "CONSEQUENCE"}},
		"object":     map[string]any{"type": "string"},
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}, "actor", "predicate", "object", "confidence")
	ledger := obj(map[string]any{
		"rows":           map[string]any{"type": "array", "items": row},
		"grand_total":    amount,
		"declared_total": map[string]any{"type": []string{"number", "null"}},
		"reconciled":     map[string]any{"type": "boolean"},
	}, "rows", "grand_total", "declared_total", "reconciled")

	return obj(map[string]any{
		"document_id":        map[string]any{"type": "string", "minLength": 1},
		"document_type":      map[string]any{"type": "string", "enum": []string{"7A", "14B", "UNKNOWN"}},
		"ledger":             ledger,
		"timeline":           map[string]any{"type": "array", "items": event},
		"relations":          map[string]any{"type": "array", "items": rel},
		"compliance_outcome": map[string]any{"type": "string", "enum": []string{"COMPLIANT", "NON_COMPLIANT", "UNDETERMINED"}},
		"quality_flags":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	}, "document_id", "document_type", "ledger", "timeline", "relations", "compliance_outcome", "quality_flags")
}

// Marshal serializes a case record and validates the bytes against the
// wire schema before handing them out.
func Marshal(rec *entity.CaseRecord) ([]byte, error) {
	data, err := json.Marshal(ToWire(rec))
	if err != nil {
		return nil, fmt.Errorf("marshal case record: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildCaseRecordSchema(), data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
