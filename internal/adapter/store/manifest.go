package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketFiles = []byte("files")

// ManifestEntry records one ingested source file so later runs can skip
// unchanged files and a rebuild can be targeted per document.
type ManifestEntry struct {
	Path       string    `json:"path"`
	DocHash    string    `json:"doc_hash"`
	ModTime    int64     `json:"mod_time"`
	ChunkCount int       `json:"chunk_count"`
	BatchID    string    `json:"batch_id"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// Manifest is the bbolt-backed ingest bookkeeping store, keyed by absolute
// source file path.
type Manifest struct {
	db *bbolt.DB
}

// OpenManifest opens (or creates) the manifest database.
func OpenManifest(path string) (*Manifest, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create manifest directory: %w", err)
	}

	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketFiles)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create files bucket: %w", err)
	}

	return &Manifest{db: db}, nil
}

// Get returns the entry for a source path, if any.
func (m *Manifest) Get(path string) (ManifestEntry, bool, error) {
	var entry ManifestEntry
	var found bool

	err := m.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketFiles).Get([]byte(path))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	return entry, found, err
}

// Put stores entries in one transaction.
func (m *Manifest) Put(entries ...ManifestEntry) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFiles)
		for _, entry := range entries {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(entry.Path), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the entry for a source path.
func (m *Manifest) Delete(path string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).Delete([]byte(path))
	})
}

// All lists every recorded entry.
func (m *Manifest) All() ([]ManifestEntry, error) {
	var entries []ManifestEntry
	err := m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFiles).ForEach(func(_, v []byte) error {
			var entry ManifestEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return nil // skip corrupted entries
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// Clear drops every entry, used when the collection is reset.
func (m *Manifest) Clear() error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketFiles); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketFiles)
		return err
	})
}

// Close closes the underlying database.
func (m *Manifest) Close() error {
	return m.db.Close()
}
