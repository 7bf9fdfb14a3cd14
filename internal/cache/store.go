package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/chronicle-dev/chronicle/internal/models"
)

const (
	analysisBucket = "analysis"
	artifactBucket = "artifact"
	metaBucket     = "meta"

	fingerprintKey = "fingerprint"
)

// Store is the keyed cache shared by one run. Period analyses are keyed by
// (period id, config fingerprint); artifact lists are partitioned by kind
// with a per-kind TTL. bbolt serializes writers, so concurrent jobs within a
// run get atomic per-key write-replace without any locking here.
type Store struct {
	db   *bolt.DB
	path string
}

// Open opens (creating if needed) the cache database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "chronicle.db")
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{analysisBucket, artifactBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache buckets: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the on-disk location of the cache database.
func (s *Store) Path() string {
	return s.path
}

// EnsureFingerprint compares the stored configuration fingerprint with the
// current one. On mismatch the whole cache is invalidated (never partially)
// and the new fingerprint recorded. Returns true if an invalidation happened.
func (s *Store) EnsureFingerprint(fp string) (bool, error) {
	invalidated := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(metaBucket))
		stored := meta.Get([]byte(fingerprintKey))
		if stored != nil && string(stored) == fp {
			return nil
		}
		if stored != nil {
			invalidated = true
			for _, name := range []string{analysisBucket, artifactBucket} {
				if err := tx.DeleteBucket([]byte(name)); err != nil {
					return err
				}
				if _, err := tx.CreateBucket([]byte(name)); err != nil {
					return err
				}
			}
		}
		return meta.Put([]byte(fingerprintKey), []byte(fp))
	})
	return invalidated, err
}

func analysisKey(periodID, fingerprint string) []byte {
	return []byte(periodID + ":" + fingerprint)
}

// GetAnalysis looks up a cached period analysis by (period id, fingerprint).
func (s *Store) GetAnalysis(periodID, fingerprint string) (*models.PeriodAnalysis, bool, error) {
	var analysis *models.PeriodAnalysis
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(analysisBucket)).Get(analysisKey(periodID, fingerprint))
		if data == nil {
			return nil
		}
		var a models.PeriodAnalysis
		if err := json.Unmarshal(data, &a); err != nil {
			// Corrupt entry, treat as miss
			return nil
		}
		analysis = &a
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read analysis cache: %w", err)
	}
	return analysis, analysis != nil, nil
}

// PutAnalysis persists a period analysis. Writes are idempotent: writing the
// same key twice replaces the value, so a job finishing during cancellation
// is safe to complete.
func (s *Store) PutAnalysis(periodID, fingerprint string, analysis models.PeriodAnalysis) error {
	// Cached entries are served as fresh computations on the next run
	analysis.CacheHit = false

	data, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(analysisBucket)).Put(analysisKey(periodID, fingerprint), data)
	})
	if err != nil {
		return fmt.Errorf("write analysis cache: %w", err)
	}
	return nil
}

// artifactEntry wraps a cached artifact list with its fetch time for TTL.
type artifactEntry struct {
	FetchedAt time.Time         `json:"fetched_at"`
	Artifacts []models.Artifact `json:"artifacts"`
}

// GetArtifacts returns the cached artifact list for a kind if it is younger
// than ttl. Each kind is an independent partition with its own expiry.
func (s *Store) GetArtifacts(kind models.ArtifactKind, ttl time.Duration) ([]models.Artifact, bool, error) {
	var entry *artifactEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(artifactBucket)).Get([]byte(kind))
		if data == nil {
			return nil
		}
		var e artifactEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("read artifact cache: %w", err)
	}
	if entry == nil || time.Since(entry.FetchedAt) > ttl {
		return nil, false, nil
	}
	return entry.Artifacts, true, nil
}

// PutArtifacts stores the current artifact list for a kind.
func (s *Store) PutArtifacts(kind models.ArtifactKind, artifacts []models.Artifact) error {
	entry := artifactEntry{FetchedAt: time.Now(), Artifacts: artifacts}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode artifacts: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(artifactBucket)).Put([]byte(kind), data)
	})
	if err != nil {
		return fmt.Errorf("write artifact cache: %w", err)
	}
	return nil
}

// Stats reports entry counts per bucket, for `chronicle cache status`.
type Stats struct {
	Analyses      int
	ArtifactKinds int
	Fingerprint   string
}

// Stat returns current cache statistics.
func (s *Store) Stat() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		st.Analyses = tx.Bucket([]byte(analysisBucket)).Stats().KeyN
		st.ArtifactKinds = tx.Bucket([]byte(artifactBucket)).Stats().KeyN
		if fp := tx.Bucket([]byte(metaBucket)).Get([]byte(fingerprintKey)); fp != nil {
			st.Fingerprint = string(fp)
		}
		return nil
	})
	return st, err
}

// Clear drops every cached entry, keeping the database file.
func (s *Store) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{analysisBucket, artifactBucket, metaBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}
