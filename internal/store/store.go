// Package store is the persistence engine: named record collections keyed by
// primary id, held in an embedded pebble database. There is no query layer;
// GetAll returns a whole collection and callers filter in Go.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/cockroachdb/pebble"
)

// Collection names. One keyspace per record type, mirrored by the key layout
// "<collection>:<id>".
const (
	Users         = "users"
	Chats         = "chats"
	Messages      = "messages"
	Stories       = "stories"
	Ads           = "ads"
	Calls         = "calls"
	Stream        = "stream"
	Subscriptions = "push_subs"
)

var (
	// ErrUnavailable reports that the storage engine is not open or failed at
	// the engine level. Callers must surface it, not swallow it.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound reports a missing key on Get.
	ErrNotFound = errors.New("record not found")
)

type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Printf("store: open failed path=%s: %v", path, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ready reports whether the engine is open.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

func key(collection, id string) []byte {
	return []byte(collection + ":" + id)
}

// Put upserts a record by primary key. The record is stored as JSON.
func (s *Store) Put(collection, id string, record interface{}) error {
	if !s.Ready() {
		return ErrUnavailable
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}
	if err := s.db.Set(key(collection, id), data, pebble.Sync); err != nil {
		opFailures.WithLabelValues(collection, "put").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ops.WithLabelValues(collection, "put").Inc()
	return nil
}

// Get loads the record stored under id into out. Returns ErrNotFound when the
// key is absent.
func (s *Store) Get(collection, id string, out interface{}) error {
	if !s.Ready() {
		return ErrUnavailable
	}
	data, closer, err := s.db.Get(key(collection, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return ErrNotFound
		}
		opFailures.WithLabelValues(collection, "get").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer closer.Close()
	ops.WithLabelValues(collection, "get").Inc()
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s record: %w", collection, err)
	}
	return nil
}

// GetAll returns every raw record in the collection, in key order. All
// filtering happens in calling code.
func (s *Store) GetAll(collection string) ([][]byte, error) {
	if !s.Ready() {
		return nil, ErrUnavailable
	}
	prefix := []byte(collection + ":")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		opFailures.WithLabelValues(collection, "get_all").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer iter.Close()

	var out [][]byte
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		val := make([]byte, len(iter.Value()))
		copy(val, iter.Value())
		out = append(out, val)
	}
	ops.WithLabelValues(collection, "get_all").Inc()
	return out, nil
}

// GetAllInto unmarshals the whole collection into out, which must be a
// pointer to a slice of records.
func GetAllInto[T any](s *Store, collection string) ([]T, error) {
	raw, err := s.GetAll(collection)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raw))
	for _, data := range raw {
		var rec T
		if err := json.Unmarshal(data, &rec); err != nil {
			log.Printf("store: skipping undecodable %s record: %v", collection, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a record. Deleting an absent key is not an error.
func (s *Store) Delete(collection, id string) error {
	if !s.Ready() {
		return ErrUnavailable
	}
	if err := s.db.Delete(key(collection, id), pebble.Sync); err != nil {
		opFailures.WithLabelValues(collection, "delete").Inc()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ops.WithLabelValues(collection, "delete").Inc()
	return nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(collection string) (int64, error) {
	raw, err := s.GetAll(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(raw)), nil
}
