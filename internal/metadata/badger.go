package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	config "github.com/ledgerlens/defi-insight/configs"
)

// BadgerCache persists metadata on disk so restarts keep a warm cache.
// Expiry uses badger's native entry TTL.
type BadgerCache struct {
	db       *badger.DB
	gcTicker *time.Ticker
	stopGC   chan struct{}
}

func NewBadgerCache(cfg *config.BadgerConfig) (*BadgerCache, error) {
	path := cfg.Path
	if path == "" {
		path = filepath.Join(os.TempDir(), "defi-insight-metadata")
	}
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = false
	opts.DetectConflicts = false
	opts.ValueThreshold = 1024
	opts.Logger = nil

	return openBadgerCache(opts)
}

// NewInMemoryBadgerCache runs badger without a directory, for tests.
func NewInMemoryBadgerCache() (*BadgerCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadgerCache(opts)
}

func openBadgerCache(opts badger.Options) (*BadgerCache, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	bc := &BadgerCache{
		db:       db,
		gcTicker: time.NewTicker(5 * time.Minute),
		stopGC:   make(chan struct{}),
	}
	go bc.runGC()
	return bc, nil
}

func (bc *BadgerCache) runGC() {
	for {
		select {
		case <-bc.gcTicker.C:
			err := bc.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
				log.Debug().Err(err).Msg("BadgerDB GC error")
			}
		case <-bc.stopGC:
			return
		}
	}
}

func (bc *BadgerCache) Get(_ context.Context, key string) ([]byte, bool) {
	var value []byte
	err := bc.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			log.Debug().Err(err).Str("key", key).Msg("badger metadata cache read failed")
		}
		return nil, false
	}
	return value, true
}

func (bc *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return bc.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

func (bc *BadgerCache) Close() error {
	bc.gcTicker.Stop()
	close(bc.stopGC)
	return bc.db.Close()
}
