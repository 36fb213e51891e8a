package constants

import (
	"regexp"
	"strings"
)

// DocumentType is the statutory order class of an EPF case document.
type DocumentType string

// Stable values (store these exact strings in DB).
const (
	DocType7A      DocumentType = "7A"      // dues assessment order under section 7A
	DocType14B     DocumentType = "14B"     // penal damages order under section 14B
	DocTypeUnknown DocumentType = "UNKNOWN" // could not be determined
)

// Case IDs follow the pattern "<type>/<office>/<serial>", e.g. "7A/RO-DEL/2021/0042".
var reCaseID = regexp.MustCompile(`(?i)^(7A|14B)\b`)

// DocTypeFromCaseID reads the document type from a case identifier.
// Returns DocTypeUnknown when the identifier carries no recognizable prefix.
func DocTypeFromCaseID(caseID string) DocumentType {
	m := reCaseID.FindString(strings.TrimSpace(caseID))
	switch strings.ToUpper(m) {
	case "7A":
		return DocType7A
	case "14B":
		return DocType14B
	default:
		return DocTypeUnknown
	}
}
