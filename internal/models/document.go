// Package models defines data structures for contract metadata extraction.
package models

// FieldRecord is a single attribute extracted by the analysis service.
// Content, PageNumber and Confidence are nil when the service did not
// report them for the field.
type FieldRecord struct {
	Name       string
	Content    *string
	PageNumber *int
	Confidence *float64
}

// Metadata column names, in artifact order.
const (
	FieldContractingParty = "contracting_party"
	FieldValidTo          = "valid_to"
	FieldSignedDate       = "signed_date"
	FieldSignatoryTatra   = "signatory_tatra"
)

// ContractMetadata is the fixed-schema projection of a document's extracted
// fields. Attributes default to the empty string when a field was not found.
type ContractMetadata struct {
	FileName         string
	ContractingParty string
	ValidTo          string
	SignedDate       string
	SignatoryTatra   string
}

// Columns returns the metadata values in artifact column order,
// excluding the file name.
func (m ContractMetadata) Columns() []string {
	return []string{m.ContractingParty, m.ValidTo, m.SignedDate, m.SignatoryTatra}
}
