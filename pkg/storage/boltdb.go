package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/pipesight/pipesight/pkg/metrics"
	"github.com/pipesight/pipesight/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Root bucket holding one nested bucket per pipeline id
	bucketPipelines = []byte("pipelines")
)

// BoltStore implements Store using BoltDB. Every commit is fsynced, so a
// record that Append reported as written survives a crash; records are
// fully serialized before the write transaction starts, so a crash during
// Append never leaves a truncated record behind.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed event log store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "pipesight.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPipelines); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketPipelines, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Append durably writes one event to the sequence for pipelineID
func (s *BoltStore) Append(pipelineID string, event *types.Event) error {
	if pipelineID == "" {
		return fmt.Errorf("empty pipeline id")
	}

	// Serialize fully before opening the write transaction
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketPipelines)
		b, err := root.CreateBucketIfNotExists([]byte(pipelineID))
		if err != nil {
			return fmt.Errorf("failed to create sequence for %s: %w", pipelineID, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence number: %w", err)
		}
		return b.Put(itob(seq), data)
	})
}

// ReadAll returns the decoded event sequence for pipelineID in append order.
// Malformed records are skipped and counted rather than failing the read.
func (s *BoltStore) ReadAll(pipelineID string) ([]*types.Event, error) {
	events := []*types.Event{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPipelines).Bucket([]byte(pipelineID))
		if b == nil {
			return nil // no data yet, same as no such run
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var event types.Event
			if err := json.Unmarshal(v, &event); err != nil {
				metrics.MalformedRecords.Inc()
				continue
			}
			events = append(events, &event)
		}
		return nil
	})
	return events, err
}

// ReadAllRaw returns copies of the raw records for pipelineID in append order
func (s *BoltStore) ReadAllRaw(pipelineID string) ([][]byte, error) {
	records := [][]byte{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPipelines).Bucket([]byte(pipelineID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			// Copy out: bolt values are only valid inside the transaction
			rec := make([]byte, len(v))
			copy(rec, v)
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// ListPipelineIDs returns every pipeline id with at least one record
func (s *BoltStore) ListPipelineIDs() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketPipelines)
		return root.ForEachBucket(func(k []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// itob encodes a sequence number as a big-endian key so cursor order
// matches append order
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
