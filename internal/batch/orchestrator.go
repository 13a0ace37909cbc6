// Package batch drives the submit/poll/collect workflow across a set of
// contract documents.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tatradocs/contractmeta/internal/docintel"
	"github.com/tatradocs/contractmeta/internal/fields"
	"github.com/tatradocs/contractmeta/internal/listing"
	"github.com/tatradocs/contractmeta/internal/metadata"
	"github.com/tatradocs/contractmeta/internal/models"
	"github.com/tatradocs/contractmeta/internal/storage"
)

// Analyzer is the slice of the analysis client the orchestrator depends on.
type Analyzer interface {
	Submit(ctx context.Context, payload string) (string, error)
	PollResult(ctx context.Context, requestID string) (*docintel.Result, error)
}

// Config holds orchestration settings.
type Config struct {
	// MaxInFlight bounds concurrently processed documents (default 4).
	MaxInFlight int
}

// Outcome is the result of one document's processing: extracted metadata or
// the per-document error, never both.
type Outcome struct {
	Metadata *models.ContractMetadata
	Err      error
}

// Summary reports a finished batch run.
type Summary struct {
	RunID     string
	NewFiles  int
	Succeeded int
	Failed    int
	Uploaded  bool
	Outcomes  map[string]Outcome
}

// Orchestrator runs batches: it discovers unprocessed files, drives
// concurrent analysis, and collects outcomes into the metadata store.
type Orchestrator struct {
	lister   listing.Lister
	analyzer Analyzer
	store    *metadata.Store
	objects  storage.ObjectStore
	cfg      Config

	done  atomic.Int32
	total atomic.Int32
}

// New wires an orchestrator from its collaborators.
func New(lister listing.Lister, analyzer Analyzer, store *metadata.Store, objects storage.ObjectStore, cfg Config) *Orchestrator {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 4
	}
	return &Orchestrator{
		lister:   lister,
		analyzer: analyzer,
		store:    store,
		objects:  objects,
		cfg:      cfg,
	}
}

// Progress returns processed and total document counts for the running batch.
func (o *Orchestrator) Progress() (done, total int) {
	return int(o.done.Load()), int(o.total.Load())
}

// SelectNewFiles returns the files without a processed record, ordered by
// name for deterministic runs.
func SelectNewFiles(files []listing.File, processed map[string]struct{}) []listing.File {
	var newFiles []listing.File
	for _, file := range files {
		if _, ok := processed[file.Name]; !ok {
			newFiles = append(newFiles, file)
		}
	}
	sort.Slice(newFiles, func(i, j int) bool { return newFiles[i].Name < newFiles[j].Name })
	return newFiles
}

// Run executes one batch: load the processed-file index, select new files,
// process them concurrently, then persist the updated artifact. A run with
// no new files performs no submissions and no uploads. Per-document failures
// never abort the batch; index load and artifact persist failures do.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()[:8]
	log := slog.With("run_id", runID)

	if err := o.store.Load(ctx, o.objects); err != nil {
		return nil, err
	}

	files, err := o.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	// The artifact may live next to the source documents; never analyze it.
	candidates := files[:0:0]
	for _, file := range files {
		if file.Name == o.store.ArtifactName() || file.Name == metadata.PartnerMappingName {
			continue
		}
		candidates = append(candidates, file)
	}

	newFiles := SelectNewFiles(candidates, o.store.ProcessedFiles())
	summary := &Summary{
		RunID:    runID,
		NewFiles: len(newFiles),
		Outcomes: make(map[string]Outcome, len(newFiles)),
	}
	if len(newFiles) == 0 {
		log.Info("no new files to process", "candidates", len(candidates))
		return summary, nil
	}
	log.Info("found new files to process", "candidates", len(candidates), "new", len(newFiles))

	o.done.Store(0)
	o.total.Store(int32(len(newFiles)))

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		fileChan = make(chan listing.File, len(newFiles))
	)

	workers := min(o.cfg.MaxInFlight, len(newFiles))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for file := range fileChan {
				if ctx.Err() != nil {
					return
				}

				meta, err := o.processFile(ctx, file)

				mu.Lock()
				summary.Outcomes[file.Name] = Outcome{Metadata: meta, Err: err}
				mu.Unlock()

				done := o.done.Add(1)
				if err != nil {
					log.Warn("document processing failed", "worker", workerID, "file", file.Name, "error", err)
				} else {
					log.Info("document processed", "worker", workerID, "file", file.Name,
						"progress", fmt.Sprintf("%d/%d", done, len(newFiles)))
				}
			}
		}(i)
	}

	for _, file := range newFiles {
		fileChan <- file
	}
	close(fileChan)
	wg.Wait()

	// A cancelled run persists nothing: jobs that never reached a terminal
	// state must not leave partial metadata behind.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	for _, outcome := range summary.Outcomes {
		if outcome.Err != nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		o.store.Append(*outcome.Metadata)
	}

	if err := o.store.Persist(ctx, o.objects); err != nil {
		// Run-level failure, but extracted metadata must not vanish
		// silently: report every unpersisted record.
		for name, outcome := range summary.Outcomes {
			if outcome.Err == nil {
				log.Error("extracted metadata could not be persisted",
					"file", name, "contracting_party", outcome.Metadata.ContractingParty)
			}
		}
		return summary, err
	}
	summary.Uploaded = summary.Succeeded > 0

	log.Info("batch run complete",
		"new_files", summary.NewFiles, "succeeded", summary.Succeeded, "failed", summary.Failed)
	return summary, nil
}

// processFile runs one document through encode, submit, poll, parse and
// projection. Errors are tagged per stage and isolated to this document.
func (o *Orchestrator) processFile(ctx context.Context, file listing.File) (*models.ContractMetadata, error) {
	rc, err := file.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	payload, err := docintel.EncodeDocument(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", file.Name, err)
	}

	requestID, err := o.analyzer.Submit(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", file.Name, err)
	}
	slog.Debug("document sent for metadata analysis", "file", file.Name, "request_id", requestID)

	result, err := o.analyzer.PollResult(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", file.Name, err)
	}

	raw := result.Fields()
	if raw == nil {
		return nil, fmt.Errorf("parse result for %s: no analyzed documents in payload", file.Name)
	}

	meta := fields.Project(file.Name, fields.Parse(raw))
	return &meta, nil
}
