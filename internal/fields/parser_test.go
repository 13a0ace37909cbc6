package fields_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tatradocs/contractmeta/internal/docintel"
	"github.com/tatradocs/contractmeta/internal/fields"
	"github.com/tatradocs/contractmeta/internal/models"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestParse(t *testing.T) {
	raw := map[string]docintel.Field{
		"contracting_party": {
			Content:         strPtr("ACME s.r.o."),
			BoundingRegions: []docintel.BoundingRegion{{PageNumber: 1}, {PageNumber: 2}},
			Confidence:      floatPtr(0.98),
		},
		"valid_to": {
			Content: strPtr("2027-01-31"),
		},
		"signatory_tatra": {},
	}

	records := fields.Parse(raw)
	assert.Len(t, records, 3)

	// Sorted by field name.
	assert.Equal(t, "contracting_party", records[0].Name)
	assert.Equal(t, "signatory_tatra", records[1].Name)
	assert.Equal(t, "valid_to", records[2].Name)

	party := records[0]
	assert.Equal(t, "ACME s.r.o.", *party.Content)
	assert.Equal(t, 1, *party.PageNumber, "page number comes from the first bounding region")
	assert.InDelta(t, 0.98, *party.Confidence, 0.001)

	validTo := records[2]
	assert.Nil(t, validTo.PageNumber, "no bounding region means no page number")
	assert.Nil(t, validTo.Confidence)

	empty := records[1]
	assert.Nil(t, empty.Content)
	assert.Nil(t, empty.PageNumber)
	assert.Nil(t, empty.Confidence)
}

func TestParseEmpty(t *testing.T) {
	assert.Empty(t, fields.Parse(nil))
	assert.Empty(t, fields.Parse(map[string]docintel.Field{}))
}

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		records []models.FieldRecord
		want    models.ContractMetadata
	}{
		{
			name: "all fields present",
			records: []models.FieldRecord{
				{Name: "contracting_party", Content: strPtr("ACME s.r.o.")},
				{Name: "valid_to", Content: strPtr("2027-01-31")},
				{Name: "signed_date", Content: strPtr("2024-02-15")},
				{Name: "signatory_tatra", Content: strPtr("J. Novak")},
			},
			want: models.ContractMetadata{
				FileName:         "contract.pdf",
				ContractingParty: "ACME s.r.o.",
				ValidTo:          "2027-01-31",
				SignedDate:       "2024-02-15",
				SignatoryTatra:   "J. Novak",
			},
		},
		{
			name: "missing fields stay empty",
			records: []models.FieldRecord{
				{Name: "contracting_party", Content: strPtr("ACME s.r.o.")},
			},
			want: models.ContractMetadata{
				FileName:         "contract.pdf",
				ContractingParty: "ACME s.r.o.",
			},
		},
		{
			name: "fields outside the schema are dropped",
			records: []models.FieldRecord{
				{Name: "contracting_party", Content: strPtr("ACME s.r.o.")},
				{Name: "total_amount", Content: strPtr("1200 EUR")},
			},
			want: models.ContractMetadata{
				FileName:         "contract.pdf",
				ContractingParty: "ACME s.r.o.",
			},
		},
		{
			name: "nil content is skipped",
			records: []models.FieldRecord{
				{Name: "contracting_party"},
				{Name: "signed_date", Content: strPtr("2024-02-15")},
			},
			want: models.ContractMetadata{
				FileName:   "contract.pdf",
				SignedDate: "2024-02-15",
			},
		},
		{
			name:    "no records",
			records: nil,
			want:    models.ContractMetadata{FileName: "contract.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fields.Project("contract.pdf", tt.records)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnsOrder(t *testing.T) {
	meta := models.ContractMetadata{
		FileName:         "contract.pdf",
		ContractingParty: "ACME s.r.o.",
		ValidTo:          "2027-01-31",
		SignedDate:       "2024-02-15",
		SignatoryTatra:   "J. Novak",
	}
	assert.Equal(t, []string{"ACME s.r.o.", "2027-01-31", "2024-02-15", "J. Novak"}, meta.Columns())
}
