package storage

import (
	"fmt"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

// Open returns the database selected by backend. The memory backend ignores
// path.
func Open(backend, path string) (Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendMemory:
		return NewMemDB(), nil
	case "", BackendLevelDB:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("leveldb path required")
		}
		return NewLevelDB(path)
	case BackendBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bolt path required")
		}
		return NewBoltDB(path)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", backend)
	}
}
