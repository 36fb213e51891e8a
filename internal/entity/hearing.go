package entity

import (
	"time"

	"github.com/epfo-tools/case-engine/constants"
)

// HearingEvent is one entry of the reconstructed hearing timeline.
// Date is nil when the source text carried a date token that could not
// be parsed; such events are retained, never dropped.
type HearingEvent struct {
	Date       *time.Time
	Kind       constants.EventKind
	Reason     string
	SourceLine int
}
