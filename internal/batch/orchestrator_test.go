package batch_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatradocs/contractmeta/internal/batch"
	"github.com/tatradocs/contractmeta/internal/docintel"
	"github.com/tatradocs/contractmeta/internal/listing"
	"github.com/tatradocs/contractmeta/internal/metadata"
	"github.com/tatradocs/contractmeta/internal/storage"
)

// memStore is an in-memory ObjectStore for hermetic tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads int
	failing bool
}

var _ storage.ObjectStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[name]
	return ok, nil
}

func (s *memStore) Read(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrObjectNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Upload(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return fmt.Errorf("upload %s: connection reset", name)
	}
	s.objects[name] = data
	s.uploads++
	return nil
}

func (s *memStore) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var objects []storage.ObjectInfo
	for name, data := range s.objects {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, storage.ObjectInfo{Name: name, Size: int64(len(data))})
		}
	}
	return objects, nil
}

// fakeLister serves a fixed file set. Each file's content is its own name so
// the analyzer can identify documents from the submitted payload.
type fakeLister struct {
	names []string
}

func (l fakeLister) List(context.Context) ([]listing.File, error) {
	var files []listing.File
	for _, name := range l.names {
		name := name
		files = append(files, listing.NewFile(name, int64(len(name)), func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(name)), nil
		}))
	}
	return files, nil
}

// fakeAnalyzer resolves documents by the filename encoded in the payload.
type fakeAnalyzer struct {
	mu      sync.Mutex
	submits int

	submitErrs map[string]error
	pollErrs   map[string]error
	parties    map[string]string
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{
		submitErrs: make(map[string]error),
		pollErrs:   make(map[string]error),
		parties:    make(map[string]string),
	}
}

func (a *fakeAnalyzer) Submit(_ context.Context, payload string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", err
	}
	name := string(data)

	a.mu.Lock()
	a.submits++
	a.mu.Unlock()

	if err, ok := a.submitErrs[name]; ok {
		return "", err
	}
	return "req-" + name, nil
}

func (a *fakeAnalyzer) PollResult(_ context.Context, requestID string) (*docintel.Result, error) {
	name := strings.TrimPrefix(requestID, "req-")
	if err, ok := a.pollErrs[name]; ok {
		return nil, err
	}

	party := a.parties[name]
	return &docintel.Result{
		Status: docintel.StatusSucceeded,
		AnalyzeResult: &docintel.AnalyzeResult{
			Documents: []docintel.AnalyzedDocument{
				{Fields: map[string]docintel.Field{"contracting_party": {Content: &party}}},
			},
		},
	}, nil
}

func (a *fakeAnalyzer) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submits
}

func newOrchestrator(names []string, analyzer *fakeAnalyzer, objects *memStore) *batch.Orchestrator {
	store := metadata.NewStore("")
	return batch.New(fakeLister{names: names}, analyzer, store, objects, batch.Config{MaxInFlight: 2})
}

func TestSelectNewFiles(t *testing.T) {
	files, err := fakeLister{names: []string{"b.pdf", "a.pdf", "c.pdf"}}.List(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name      string
		processed map[string]struct{}
		want      []string
	}{
		{
			name:      "empty index selects everything",
			processed: map[string]struct{}{},
			want:      []string{"a.pdf", "b.pdf", "c.pdf"},
		},
		{
			name:      "full index selects nothing",
			processed: map[string]struct{}{"a.pdf": {}, "b.pdf": {}, "c.pdf": {}},
			want:      nil,
		},
		{
			name:      "partial index selects the rest, sorted",
			processed: map[string]struct{}{"b.pdf": {}},
			want:      []string{"a.pdf", "c.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected := batch.SelectNewFiles(files, tt.processed)
			var names []string
			for _, file := range selected {
				names = append(names, file.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRunProcessesNewFiles(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	analyzer.parties["a.pdf"] = "Alpha s.r.o."
	analyzer.parties["b.pdf"] = "Beta a.s."
	objects := newMemStore()

	orch := newOrchestrator([]string{"a.pdf", "b.pdf"}, analyzer, objects)
	summary, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.NewFiles)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.Uploaded)
	assert.Equal(t, "Alpha s.r.o.", summary.Outcomes["a.pdf"].Metadata.ContractingParty)

	artifact := string(objects.objects[metadata.DefaultArtifactName])
	assert.Contains(t, artifact, `"a.pdf","Alpha s.r.o."`)
	assert.Contains(t, artifact, `"b.pdf","Beta a.s."`)
	assert.Contains(t, string(objects.objects[metadata.PartnerMappingName]), `"b.pdf","Beta a.s."`)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	analyzer.parties["a.pdf"] = "Alpha s.r.o."
	objects := newMemStore()

	_, err := newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, analyzer.submitCount())
	uploadsAfterFirstRun := objects.uploads

	// A fresh orchestrator over the same storage sees the processed index.
	summary, err := newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.NewFiles)
	assert.False(t, summary.Uploaded)
	assert.Equal(t, 1, analyzer.submitCount(), "already-processed files are never resubmitted")
	assert.Equal(t, uploadsAfterFirstRun, objects.uploads, "a run with no new files uploads nothing")
}

func TestRunIsolatesDocumentFailures(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	analyzer.parties["a.pdf"] = "Alpha s.r.o."
	analyzer.pollErrs["b.pdf"] = &docintel.AnalysisError{RequestID: "req-b.pdf", Code: "InvalidContent", Message: "corrupt pdf"}
	analyzer.submitErrs["c.pdf"] = &docintel.SubmissionError{StatusCode: 400, Body: "too large"}
	objects := newMemStore()

	summary, err := newOrchestrator([]string{"a.pdf", "b.pdf", "c.pdf"}, analyzer, objects).Run(ctx)
	require.NoError(t, err, "per-document failures never abort the batch")

	assert.Equal(t, 3, summary.NewFiles)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.True(t, summary.Uploaded)
	assert.Error(t, summary.Outcomes["b.pdf"].Err)
	assert.Error(t, summary.Outcomes["c.pdf"].Err)

	artifact := string(objects.objects[metadata.DefaultArtifactName])
	assert.Contains(t, artifact, "a.pdf")
	assert.NotContains(t, artifact, "b.pdf", "failed documents leave no artifact record")
	assert.NotContains(t, artifact, "c.pdf")
}

func TestFailedDocumentIsRetriedNextRun(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	analyzer.parties["a.pdf"] = "Alpha s.r.o."
	analyzer.pollErrs["a.pdf"] = &docintel.PollTimeoutError{RequestID: "req-a.pdf", Attempts: 12}
	objects := newMemStore()

	summary, err := newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, summary.Uploaded)

	// The document resolves on the next run.
	delete(analyzer.pollErrs, "a.pdf")
	summary, err = newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewFiles, "a failed document stays unprocessed")
	assert.Equal(t, 1, summary.Succeeded)
	assert.Contains(t, string(objects.objects[metadata.DefaultArtifactName]), "a.pdf")
}

func TestRunSkipsArtifactObjects(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	objects := newMemStore()

	names := []string{metadata.DefaultArtifactName, metadata.PartnerMappingName}
	summary, err := newOrchestrator(names, analyzer, objects).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.NewFiles, "the artifacts themselves are never analyzed")
	assert.Equal(t, 0, analyzer.submitCount())
}

func TestRunPersistFailureReturnsSummary(t *testing.T) {
	ctx := context.Background()
	analyzer := newFakeAnalyzer()
	analyzer.parties["a.pdf"] = "Alpha s.r.o."
	objects := newMemStore()
	objects.failing = true

	summary, err := newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	require.Error(t, err)
	require.NotNil(t, summary, "the summary survives a persist failure")
	assert.Equal(t, 1, summary.Succeeded)
	assert.False(t, summary.Uploaded)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := newFakeAnalyzer()
	objects := newMemStore()

	_, err := newOrchestrator([]string{"a.pdf"}, analyzer, objects).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, objects.uploads, "a cancelled run persists nothing")
}
