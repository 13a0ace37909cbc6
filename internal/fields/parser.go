// Package fields maps raw analysis output onto the fixed metadata schema.
package fields

import (
	"sort"

	"github.com/tatradocs/contractmeta/internal/docintel"
	"github.com/tatradocs/contractmeta/internal/models"
)

// Parse converts the service's raw field map into field records. Content,
// page number (first bounding region) and confidence stay nil when absent.
// Output is sorted by field name so callers see a deterministic order;
// ordering is not significant downstream since records are re-projected
// by name.
func Parse(raw map[string]docintel.Field) []models.FieldRecord {
	records := make([]models.FieldRecord, 0, len(raw))
	for name, field := range raw {
		record := models.FieldRecord{
			Name:       name,
			Content:    field.Content,
			Confidence: field.Confidence,
		}
		if len(field.BoundingRegions) > 0 {
			page := field.BoundingRegions[0].PageNumber
			record.PageNumber = &page
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// Project folds field records into the fixed metadata schema for one file.
// Fields outside the schema are dropped; schema fields that were not
// extracted stay empty strings.
func Project(fileName string, records []models.FieldRecord) models.ContractMetadata {
	meta := models.ContractMetadata{FileName: fileName}

	for _, record := range records {
		if record.Content == nil {
			continue
		}
		switch record.Name {
		case models.FieldContractingParty:
			meta.ContractingParty = *record.Content
		case models.FieldValidTo:
			meta.ValidTo = *record.Content
		case models.FieldSignedDate:
			meta.SignedDate = *record.Content
		case models.FieldSignatoryTatra:
			meta.SignatoryTatra = *record.Content
		}
	}
	return meta
}
