package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ragkit/config"
	"ragkit/internal/adapter/chunker"
	"ragkit/internal/adapter/embedding"
	"ragkit/internal/adapter/extract"
	"ragkit/internal/adapter/fs"
	"ragkit/internal/adapter/store"
	"ragkit/internal/port"
)

func newTestIngest(t *testing.T, embedder port.Embedder) (*IngestUseCase, *store.Corpus) {
	t.Helper()

	manifest, err := store.OpenManifest(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { manifest.Close() })

	registry := extract.DefaultRegistry(nil)
	walker := fs.NewWalker(nil, nil, registry.Extensions())
	chk := chunker.NewStructureChunker(config.ChunkingConfig{ChunkSize: 200, ChunkOverlap: 40})
	corpus := store.NewCorpus(embedder, nil, nil)

	return NewIngestUseCase(walker, registry, chk, corpus, manifest, 2, nil), corpus
}

func writeKnowledge(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestIngestProcessesDocuments(t *testing.T) {
	uc, corpus := newTestIngest(t, embedding.NewMockEmbedder(16))
	root := writeKnowledge(t, map[string]string{
		"handbook.txt":   "Vacation allowance is twenty days per calendar year.",
		"sub/policy.md":  "Remote work requires manager approval in advance.",
		"ignored.binary": "not a supported format",
	})

	result, err := uc.Ingest(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesProcessed != 2 {
		t.Errorf("processed %d files, want 2", result.FilesProcessed)
	}
	if result.ChunksAdded == 0 {
		t.Error("no chunks added")
	}
	if result.BatchID == "" {
		t.Error("missing batch id")
	}
	if corpus.Count() != result.ChunksAdded {
		t.Errorf("corpus holds %d chunks, result says %d", corpus.Count(), result.ChunksAdded)
	}
}

func TestIngestSkipsUnchangedOnRerun(t *testing.T) {
	uc, corpus := newTestIngest(t, embedding.NewMockEmbedder(16))
	root := writeKnowledge(t, map[string]string{
		"a.txt": "First document content for the corpus.",
		"b.txt": "Second document content for the corpus.",
	})

	first, err := uc.Ingest(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	countAfterFirst := corpus.Count()

	second, err := uc.Ingest(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if second.FilesSkipped != first.FilesProcessed {
		t.Errorf("skipped %d, want %d", second.FilesSkipped, first.FilesProcessed)
	}
	if second.FilesProcessed != 0 {
		t.Errorf("reprocessed %d unchanged files", second.FilesProcessed)
	}
	if corpus.Count() != countAfterFirst {
		t.Errorf("rerun grew corpus from %d to %d", countAfterFirst, corpus.Count())
	}
}

func TestIngestEmptyFileBecomesWarning(t *testing.T) {
	uc, _ := newTestIngest(t, embedding.NewMockEmbedder(16))
	root := writeKnowledge(t, map[string]string{
		"empty.txt": "   \n\n",
		"real.txt":  "Actual content worth indexing.",
	})

	result, err := uc.Ingest(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesFailed != 1 {
		t.Errorf("failed %d, want 1", result.FilesFailed)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings %v", result.Warnings)
	}
	if result.FilesProcessed != 1 {
		t.Errorf("processed %d, want 1", result.FilesProcessed)
	}
}

func TestIngestKeywordOnlyWhenBackendDown(t *testing.T) {
	uc, corpus := newTestIngest(t, embedding.NewFailingEmbedder())
	root := writeKnowledge(t, map[string]string{
		"doc.txt": "Parental leave policy grants sixteen weeks.",
	})

	result, err := uc.Ingest(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}

	if !result.KeywordOnly {
		t.Error("expected keyword-only result")
	}
	if corpus.Count() == 0 {
		t.Error("chunks should be stored without vectors")
	}
}

func TestProcessDocumentMetadata(t *testing.T) {
	uc, _ := newTestIngest(t, embedding.NewMockEmbedder(16))
	root := writeKnowledge(t, map[string]string{
		"guide.md": "Onboarding happens during the first week. Ask HR for your equipment.",
	})

	chunks, err := uc.ProcessDocument(filepath.Join(root, "guide.md"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	meta := chunks[0].Metadata
	if meta.Source != "guide.md" {
		t.Errorf("source %q", meta.Source)
	}
	if meta.FileType != "md" {
		t.Errorf("file type %q", meta.FileType)
	}
	if meta.DocHash == "" || meta.ProcessedAt.IsZero() {
		t.Errorf("missing provenance: %+v", meta)
	}
	if meta.CharCount == 0 || meta.WordCount == 0 {
		t.Errorf("missing size stats: %+v", meta)
	}
}
