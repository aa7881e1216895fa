package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ragkit/internal/adapter/fs"
	"ragkit/internal/adapter/store"
	"ragkit/internal/domain"
	"ragkit/internal/port"
)

// IngestUseCase discovers documents, extracts and chunks their text, and
// loads the chunks into the corpus. A manifest keeps track of what has
// already been indexed so unchanged files are skipped.
type IngestUseCase struct {
	walker    *fs.Walker
	extractor port.Extractor
	chunker   port.Chunker
	corpus    *store.Corpus
	manifest  *store.Manifest
	workers   int
	logger    *slog.Logger

	// Progress, when set, is called once per processed file.
	Progress func(name string)
}

func NewIngestUseCase(
	walker *fs.Walker,
	extractor port.Extractor,
	chunker port.Chunker,
	corpus *store.Corpus,
	manifest *store.Manifest,
	workers int,
	logger *slog.Logger,
) *IngestUseCase {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		walker:    walker,
		extractor: extractor,
		chunker:   chunker,
		corpus:    corpus,
		manifest:  manifest,
		workers:   workers,
		logger:    logger,
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	BatchID        string
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	ChunksAdded    int
	KeywordOnly    bool
	Warnings       []string
}

// Ingest walks root and indexes every new or changed document. Individual
// file failures become warnings; the run only errors when nothing at all can
// proceed (unreadable root, broken manifest, rejected store batch).
func (u *IngestUseCase) Ingest(ctx context.Context, root string) (*IngestResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	result := &IngestResult{BatchID: uuid.NewString()}

	var (
		mu      sync.Mutex
		chunks  []domain.Chunk
		entries []store.ManifestEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for _, file := range files {
		file := file

		known, found, err := u.manifest.Get(file.Path)
		if err != nil {
			return nil, fmt.Errorf("manifest lookup for %s: %w", file.Path, err)
		}
		if found && known.ModTime == file.ModTime.Unix() {
			result.FilesSkipped++
			continue
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			docChunks, err := u.ProcessDocument(file.Path)

			mu.Lock()
			defer mu.Unlock()
			if u.Progress != nil {
				u.Progress(file.Name)
			}
			if err != nil {
				result.FilesFailed++
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", file.Name, err))
				u.logger.Warn("document skipped", "file", file.Name, "error", err)
				return nil
			}

			result.FilesProcessed++
			result.ChunksAdded += len(docChunks)
			chunks = append(chunks, docChunks...)

			docHash := ""
			if len(docChunks) > 0 {
				docHash = docChunks[0].Metadata.DocHash
			}
			entries = append(entries, store.ManifestEntry{
				Path:       file.Path,
				DocHash:    docHash,
				ModTime:    file.ModTime.Unix(),
				ChunkCount: len(docChunks),
				BatchID:    result.BatchID,
				IndexedAt:  time.Now(),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		if !u.corpus.AddDocuments(ctx, chunks) {
			return nil, errors.New("vector store rejected the batch")
		}
		if err := u.manifest.Put(entries...); err != nil {
			return nil, fmt.Errorf("failed to record manifest entries: %w", err)
		}
	}
	result.KeywordOnly = u.corpus.KeywordOnly()

	return result, nil
}

// ProcessDocument extracts one file and chunks it, stamping provenance
// metadata on every chunk.
func (u *IngestUseCase) ProcessDocument(path string) ([]domain.Chunk, error) {
	text, err := u.extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text in %s", filepath.Base(path))
	}

	sum := sha256.Sum256([]byte(text))
	base := domain.ChunkMetadata{
		Source:      filepath.Base(path),
		FilePath:    path,
		FileType:    strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		DocHash:     hex.EncodeToString(sum[:]),
		ProcessedAt: time.Now().UTC(),
		CharCount:   len(text),
		WordCount:   len(strings.Fields(text)),
	}

	return u.chunker.Chunk(text, base), nil
}
