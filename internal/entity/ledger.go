package entity

// ScheduleLine is one parsed row of a schedule table: the account-wise
// dues breakdown of a 7A order. Amounts are in whole currency units.
type ScheduleLine struct {
	AccountCode string
	EEShare     float64
	ERShare     float64
	AdminCharge float64
	Damages     float64
	Total       float64
	// Residual is |Total - (EE+ER+Admin+Damages)| under the chosen
	// interpretation of the row.
	Residual float64
	// Mismatch is set when Residual exceeds the reconciliation
	// tolerance. The row is kept with its best-guess values.
	Mismatch   bool
	SourceLine int
}

// Sum returns the recomputed component sum of the row.
func (l ScheduleLine) Sum() float64 {
	return l.EEShare + l.ERShare + l.AdminCharge + l.Damages
}

// FinancialLedger is the parsed schedule of a document. Rows keep
// source order. GrandTotal is always recomputed from the rows; a total
// declared in the text is carried separately and never overrides it.
type FinancialLedger struct {
	Rows          []ScheduleLine
	GrandTotal    float64
	DeclaredTotal *float64
	// Reconciled is true when every row reconciled within tolerance
	// and any declared total matches the computed one.
	Reconciled bool
}

// Empty reports whether no schedule region was found.
func (l FinancialLedger) Empty() bool {
	return len(l.Rows) == 0
}
