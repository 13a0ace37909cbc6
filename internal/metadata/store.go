// Package metadata accumulates extracted contract metadata and persists it
// as the CSV artifact that doubles as the processed-file index.
package metadata

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/tatradocs/contractmeta/internal/models"
	"github.com/tatradocs/contractmeta/internal/storage"
)

const (
	// DefaultArtifactName is the persisted metadata file.
	DefaultArtifactName = "documents_metadata.txt"
	// PartnerMappingName is the secondary filename-to-party artifact.
	PartnerMappingName = "partner_file_mapping.txt"

	// The artifact starts with an instruction line, a blank line and the
	// column header. Load skips exactly this many lines.
	headerLines = 3

	uploadRetries = 3
)

const instructionLine = "Use this file for all overview questions about contract partners, " +
	"sign dates and signatories. Each row describes one contract document."

var columns = []string{"file_name", "contracting_party", "valid_to", "signed_date", "signatory_tatra"}

// Store holds the accumulated per-file metadata records. Loads and appends
// from concurrent completions are synchronized internally.
type Store struct {
	artifactName string

	mu       sync.Mutex
	records  map[string]models.ContractMetadata
	appended int
}

// NewStore creates an empty store persisting to the given artifact name.
// An empty name selects DefaultArtifactName.
func NewStore(artifactName string) *Store {
	if artifactName == "" {
		artifactName = DefaultArtifactName
	}
	return &Store{
		artifactName: artifactName,
		records:      make(map[string]models.ContractMetadata),
	}
}

// ArtifactName returns the persisted artifact's object name.
func (s *Store) ArtifactName() string {
	return s.artifactName
}

// Load reads the persisted artifact into the store. A missing artifact is
// not an error; the store just starts empty.
func (s *Store) Load(ctx context.Context, store storage.ObjectStore) error {
	rc, err := store.Read(ctx, s.artifactName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			slog.Info("no existing metadata artifact, starting fresh", "artifact", s.artifactName)
			return nil
		}
		return fmt.Errorf("read metadata artifact: %w", err)
	}
	defer rc.Close()

	if err := s.parse(rc); err != nil {
		return fmt.Errorf("parse metadata artifact: %w", err)
	}
	return nil
}

func (s *Store) parse(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) <= headerLines {
		return nil
	}
	body := strings.Join(lines[headerLines:], "\n")

	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) == 0 || row[0] == "" {
			continue
		}

		record := models.ContractMetadata{FileName: row[0]}
		if len(row) >= len(columns) {
			record.ContractingParty = row[1]
			record.ValidTo = row[2]
			record.SignedDate = row[3]
			record.SignatoryTatra = row[4]
		}
		s.records[record.FileName] = record
	}
}

// Has reports whether a file already has a persisted record.
func (s *Store) Has(fileName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[fileName]
	return ok
}

// ProcessedFiles returns the set of filenames present in the store.
func (s *Store) ProcessedFiles() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	processed := make(map[string]struct{}, len(s.records))
	for name := range s.records {
		processed[name] = struct{}{}
	}
	return processed
}

// Append merges a record into the store, keyed by filename. Re-appending a
// filename overwrites its previous record.
func (s *Store) Append(record models.ContractMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.FileName] = record
	s.appended++
}

// Appended returns the number of Append calls since the last successful
// Persist (or since Load).
func (s *Store) Appended() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appended
}

// Len returns the number of accumulated records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Records returns all records ordered by filename.
func (s *Store) Records() []models.ContractMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]models.ContractMetadata, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].FileName < records[j].FileName })
	return records
}

// Serialize renders the artifact: instruction line, blank line, quoted
// header, then one quoted row per record ordered by filename.
func (s *Store) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString(instructionLine + "\n\n")
	writeRow(&buf, columns)
	for _, record := range s.Records() {
		writeRow(&buf, append([]string{record.FileName}, record.Columns()...))
	}
	return buf.Bytes()
}

// PartnerMapping renders the secondary artifact mapping each filename to
// its contracting party.
func (s *Store) PartnerMapping() []byte {
	var buf bytes.Buffer
	for _, record := range s.Records() {
		writeRow(&buf, []string{record.FileName, record.ContractingParty})
	}
	return buf.Bytes()
}

func writeRow(buf *bytes.Buffer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// Persist uploads the artifact and the partner mapping. It does not touch
// the storage collaborator when nothing was appended this run. Transient
// upload failures are retried with backoff; a final failure is run-fatal
// for the caller.
func (s *Store) Persist(ctx context.Context, store storage.ObjectStore) error {
	if s.Appended() == 0 {
		slog.Info("no new metadata records, skipping upload", "artifact", s.artifactName)
		return nil
	}

	if err := s.upload(ctx, store, s.artifactName, s.Serialize()); err != nil {
		return fmt.Errorf("persist metadata artifact: %w", err)
	}
	if err := s.upload(ctx, store, PartnerMappingName, s.PartnerMapping()); err != nil {
		return fmt.Errorf("persist partner mapping: %w", err)
	}

	s.mu.Lock()
	s.appended = 0
	s.mu.Unlock()

	slog.Info("metadata artifact persisted", "artifact", s.artifactName, "records", s.Len())
	return nil
}

func (s *Store) upload(ctx context.Context, store storage.ObjectStore, name string, data []byte) error {
	operation := func() error {
		return store.Upload(ctx, name, data, "text/plain")
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uploadRetries), ctx)
	return backoff.Retry(operation, policy)
}
