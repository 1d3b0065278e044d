package engine

import (
	"encoding/json"
	"errors"
	"fmt"

	pebblestore "github.com/rzbill/tether/internal/storage/pebble"
	"github.com/rzbill/tether/pkg/id"
)

// Key layout:
//
//	e/<collection>/<entity-id> -> JSON fields
//	sys/root                   -> root id
const (
	entityKeyPrefix = "e/"
	rootKey         = "sys/root"
)

// Storage is the node's persistent local store.
type Storage struct {
	db  *pebblestore.DB
	gen *id.Generator
}

// OpenStorage opens (creating if needed) the store at dir.
func OpenStorage(dir string, fsync pebblestore.FsyncMode) (*Storage, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dir, Fsync: fsync})
	if err != nil {
		return nil, err
	}
	return &Storage{db: db, gen: id.NewGenerator()}, nil
}

// Close closes the underlying store.
func (s *Storage) Close() error { return s.db.Close() }

// NewID mints a sortable entity identifier.
func (s *Storage) NewID() string { return s.gen.Next().String() }

func entityKey(collection, entityID string) []byte {
	return []byte(entityKeyPrefix + collection + "/" + entityID)
}

func collectionPrefix(collection string) []byte {
	return []byte(entityKeyPrefix + collection + "/")
}

// PutEntities writes all entities in one atomic batch.
func (s *Storage) PutEntities(entities []Entity) error {
	if len(entities) == 0 {
		return nil
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, e := range entities {
		if e.ID == "" || e.Collection == "" {
			return errors.New("engine: entity missing id or collection")
		}
		val, err := json.Marshal(e.Fields)
		if err != nil {
			return fmt.Errorf("engine: encode entity %s: %w", e.ID, err)
		}
		if err := b.Set(entityKey(e.Collection, e.ID), val, nil); err != nil {
			return err
		}
	}
	return s.db.CommitBatch(b)
}

// GetEntity loads one entity by collection and ID.
func (s *Storage) GetEntity(collection, entityID string) (Entity, bool, error) {
	val, err := s.db.Get(entityKey(collection, entityID))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return Entity{}, false, nil
		}
		return Entity{}, false, err
	}
	e := Entity{ID: entityID, Collection: collection}
	if err := json.Unmarshal(val, &e.Fields); err != nil {
		return Entity{}, false, fmt.Errorf("engine: decode entity %s: %w", entityID, err)
	}
	return e, true, nil
}

// ScanCollection visits every entity in a collection in ID (creation)
// order. Returning false from fn stops the scan.
func (s *Storage) ScanCollection(collection string, fn func(Entity) bool) error {
	prefix := collectionPrefix(collection)
	return s.db.ScanPrefix(prefix, func(key, val []byte) bool {
		e := Entity{
			ID:         string(key[len(prefix):]),
			Collection: collection,
		}
		if err := json.Unmarshal(val, &e.Fields); err != nil {
			// skip undecodable records rather than aborting the scan
			return true
		}
		return fn(e)
	})
}

// LoadRoot returns the persisted root ID, or "" when none exists.
func (s *Storage) LoadRoot() (string, error) {
	val, err := s.db.Get([]byte(rootKey))
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(val), nil
}

// SaveRoot persists the root ID.
func (s *Storage) SaveRoot(root string) error {
	if root == "" {
		return errors.New("engine: empty root")
	}
	return s.db.Set([]byte(rootKey), []byte(root))
}
