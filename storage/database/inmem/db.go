package inmemdb

import (
	"sync"
	"time"
)

type (
	DB struct {
		session *sessionTable
	}

	sessionRow struct {
		data      []byte // JSON snapshot
		updatedAt time.Time
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]sessionRow
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]sessionRow)},
	}
}
