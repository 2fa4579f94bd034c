package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"bricsengine/storage"
)

// ErrReadOnly is returned when a view transaction attempts a write.
var ErrReadOnly = errors.New("state: read-only transaction")

// Manager serialises every state mutation. Update runs one operation at a
// time against a private overlay and commits it with a single storage batch;
// View callers share the read lock and only ever see committed state.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Update executes fn with a writable transaction. Writes become visible only
// if fn returns nil; otherwise the overlay is dropped and the store is left
// exactly as it was.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := newTx(m.db, true)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// View executes fn with a read-only transaction over committed state.
func (m *Manager) View(fn func(tx *Tx) error) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager not configured")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(newTx(m.db, false))
}

// Tx is a copy-on-write overlay over the committed store.
type Tx struct {
	db       storage.Database
	writable bool
	pending  map[string][]byte
}

func newTx(db storage.Database, writable bool) *Tx {
	return &Tx{db: db, writable: writable, pending: make(map[string][]byte)}
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	hashed := kvKey(key)
	if data, ok := tx.pending[string(hashed)]; ok {
		return data, nil
	}
	data, err := tx.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (tx *Tx) put(key []byte, data []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.pending[string(kvKey(key))] = data
	return nil
}

// Dirty reports how many keys the transaction has staged.
func (tx *Tx) Dirty() int {
	return len(tx.pending)
}

func (tx *Tx) commit() error {
	if len(tx.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tx.pending))
	for key := range tx.pending {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	batch := tx.db.NewBatch()
	for _, key := range keys {
		batch.Put([]byte(key), tx.pending[key])
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	tx.pending = make(map[string][]byte)
	return nil
}

// KVPut RLP-encodes value and stages it under key.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(key, encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := tx.get(key)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends value to the byte-slice list stored under key. Duplicates
// are ignored so indexes stay deterministic.
func (tx *Tx) KVAppend(key []byte, value []byte) error {
	var list [][]byte
	if err := tx.KVGetList(key, &list); err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return tx.KVPut(key, list)
}

// KVGetList decodes the list stored under key into out, which must point to a
// slice. Missing keys yield an empty slice.
func (tx *Tx) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("kv: destination must be a non-nil pointer")
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must point to a slice")
	}
	ok, err := tx.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
	}
	return nil
}
