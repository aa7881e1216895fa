package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"ragkit/internal/domain"
)

// Embedding file layout: magic, format version, dimension, row count, then
// rows*dim little-endian float32 values in insertion order.
var vecMagic = [4]byte{'R', 'G', 'K', 'V'}

const vecVersion uint32 = 1

// FilePersister persists a corpus as a dual-file pair: a dense float32
// embedding matrix and an ordered JSON document list. Both files are
// rewritten in full on every save, through temp files and atomic renames so
// a crash cannot leave a half-written file behind.
type FilePersister struct {
	vecPath string
	docPath string
}

func NewFilePersister(vecPath, docPath string) *FilePersister {
	return &FilePersister{vecPath: vecPath, docPath: docPath}
}

// Save writes the matrix and document list. The document file is written
// first so a crash between the two writes leaves a readable (if vector-less)
// corpus rather than vectors with no documents.
func (p *FilePersister) Save(matrix [][]float32, docs []domain.Chunk) error {
	if len(matrix) > 0 && len(matrix) != len(docs) {
		return fmt.Errorf("refusing to persist misaligned corpus: %d rows, %d docs", len(matrix), len(docs))
	}

	if err := os.MkdirAll(filepath.Dir(p.vecPath), 0755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	docData, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	if err := atomic.WriteFile(p.docPath, bytes.NewReader(docData)); err != nil {
		return fmt.Errorf("%w: write documents: %v", domain.ErrStoreUnavailable, err)
	}

	if len(matrix) == 0 {
		// Keyword-only corpus: no vector file. Drop a stale one if present.
		if err := os.Remove(p.vecPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove stale vectors: %v", domain.ErrStoreUnavailable, err)
		}
		return nil
	}

	vecData, err := encodeMatrix(matrix)
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(p.vecPath, bytes.NewReader(vecData)); err != nil {
		return fmt.Errorf("%w: write vectors: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads both files back. The two renames in Save are atomic
// individually but not as a pair, so a crash between them leaves a fresh
// document file next to stale vectors; on a count mismatch the vectors are
// dropped and the documents are returned alone, since the document file is
// always the one written first. Rows are re-normalized defensively.
func (p *FilePersister) Load() ([][]float32, []domain.Chunk, error) {
	docData, err := os.ReadFile(p.docPath)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read documents: %v", domain.ErrStoreUnavailable, err)
	}

	var docs []domain.Chunk
	if err := json.Unmarshal(docData, &docs); err != nil {
		return nil, nil, fmt.Errorf("decode documents: %w", err)
	}

	vecData, err := os.ReadFile(p.vecPath)
	if os.IsNotExist(err) {
		// Keyword-only corpus persisted without vectors.
		return nil, docs, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read vectors: %v", domain.ErrStoreUnavailable, err)
	}

	matrix, err := decodeMatrix(vecData)
	if err != nil {
		return nil, nil, err
	}
	if len(matrix) != len(docs) {
		return nil, docs, nil
	}

	for i := range matrix {
		Normalize(matrix[i])
	}
	return matrix, docs, nil
}

// Remove deletes both persisted files.
func (p *FilePersister) Remove() error {
	for _, path := range []string{p.vecPath, p.docPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", domain.ErrStoreUnavailable, path, err)
		}
	}
	return nil
}

func encodeMatrix(matrix [][]float32) ([]byte, error) {
	dim := len(matrix[0])
	for i, row := range matrix {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, want %d", i, len(row), dim)
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, 16+len(matrix)*dim*4))
	buf.Write(vecMagic[:])
	binary.Write(buf, binary.LittleEndian, vecVersion)
	binary.Write(buf, binary.LittleEndian, uint32(dim))
	binary.Write(buf, binary.LittleEndian, uint32(len(matrix)))
	for _, row := range matrix {
		for _, v := range row {
			binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes(), nil
}

func decodeMatrix(data []byte) ([][]float32, error) {
	if len(data) < 16 || !bytes.Equal(data[:4], vecMagic[:]) {
		return nil, fmt.Errorf("embedding file corrupt: bad header")
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	if version != vecVersion {
		return nil, fmt.Errorf("embedding file version %d not supported", version)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	rows := int(binary.LittleEndian.Uint32(data[12:16]))

	want := 16 + rows*dim*4
	if dim <= 0 || rows < 0 || len(data) != want {
		return nil, fmt.Errorf("embedding file corrupt: %d bytes, want %d (dim=%d rows=%d)", len(data), want, dim, rows)
	}

	matrix := make([][]float32, rows)
	off := 16
	for i := 0; i < rows; i++ {
		row := make([]float32, dim)
		for j := 0; j < dim; j++ {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		matrix[i] = row
	}
	return matrix, nil
}
