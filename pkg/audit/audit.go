// Package audit keeps a local append-only log of store mutations and
// sync operations. Logging is best-effort: a mutation never fails because
// its audit entry could not be written.
package audit

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "audit"

// Entry is one logged operation.
type Entry struct {
	Timestamp string `json:"ts"` // RFC3339, UTC
	Op        string `json:"op"`
	Project   string `json:"project,omitempty"`
	Instance  string `json:"instance,omitempty"`
	Key       string `json:"key,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Log is a bbolt-backed audit log.
type Log struct {
	db *bbolt.DB
}

// Open opens (or creates) the audit database at path.
func Open(path string) (*Log, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database.
func (l *Log) Close() error { return l.db.Close() }

// Append writes one entry. The timestamp is filled in when unset.
func (l *Log) Append(e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(n int) ([]Entry, error) {
	var entries []Entry
	err := l.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := cursor.Last(); k != nil && len(entries) < n; k, v = cursor.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
