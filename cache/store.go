// Package cache memoizes per-fold transformed matrices in BadgerDB.
//
// A hit replaces fitting the fold transformer; the classifier still runs on
// identical inputs, so cached and uncached evaluations score the same.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"

	"github.com/YuminosukeSato/cvbench/core/model"
	"github.com/YuminosukeSato/cvbench/pkg/log"
)

// keyPrefix namespaces snapshot keys inside the database.
const keyPrefix = "fold/"

// Store is a BadgerDB-backed snapshot cache. It is safe for concurrent use.
type Store struct {
	db     *badger.DB
	logger log.Logger
}

// badgerLogger adapts log.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger log.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

// Infof drops badger's chatty startup messages to debug.
func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens (or creates) a persistent store under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cvbench: cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrapf(err, "cvbench: create cache directory %s", dir)
	}
	return open(badger.DefaultOptions(dir).WithSyncWrites(false))
}

// OpenInMemory opens a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	logger := log.GetLoggerWithName("cache")
	db, err := badger.Open(opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{logger: logger}))
	if err != nil {
		return nil, errors.Wrap(err, "cvbench: open badger cache")
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives the cache key for one fold. The train and test indices are
// hashed in so that a different fold policy or row cap never reuses a
// snapshot with the same fold index.
func Key(fingerprint, descriptor string, fold int, train, test []int) []byte {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(descriptor))
	h.Write([]byte{0})
	var buf [8]byte
	for _, part := range [][]int{train, test} {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(part)))
		h.Write(buf[:])
		for _, idx := range part {
			binary.LittleEndian.PutUint64(buf[:], uint64(idx))
			h.Write(buf[:])
		}
	}
	return []byte(fmt.Sprintf("%s%s/%d", keyPrefix, hex.EncodeToString(h.Sum(nil)), fold))
}

// Get loads the snapshot stored under key. ok is false on a miss.
func (s *Store) Get(key []byte) (snap *model.FoldSnapshot, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, derr := model.UnmarshalSnapshot(val)
			if derr != nil {
				return derr
			}
			snap, ok = decoded, true
			return nil
		})
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "cvbench: cache get %s", key)
	}
	s.logger.Debug("cache lookup", "key", string(key), log.CacheHitKey, ok)
	return snap, ok, nil
}

// Put stores snap under key, replacing any previous value.
func (s *Store) Put(key []byte, snap *model.FoldSnapshot) error {
	val, err := model.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return errors.Wrapf(err, "cvbench: cache put %s", key)
	}
	return nil
}

// Len counts stored snapshots.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, errors.Wrap(err, "cvbench: cache len")
}
