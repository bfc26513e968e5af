package replay

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/xi-lua/sentinel/pkg/errs"
)

var bucketNonces = []byte("nonces")

// Store records (epoch, nonce) pairs a caller has already seen, so a
// captured-and-replayed message can be rejected even though its signature
// is perfectly valid.
type Store struct {
	db        *bolt.DB
	retention time.Duration
}

// Options configures a new Store.
type Options struct {
	// Path is the bbolt database file. Its directory is created if
	// missing. Required.
	Path string

	// Retention is how long an epoch's nonces are kept before Prune
	// drops them. Defaults to 24 hours if zero.
	Retention time.Duration
}

// Open opens (or creates) the replay store at opts.Path.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: replay store path is required", errs.ErrConfig)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("replay: create dir: %w", err)
	}

	retention := opts.Retention
	if retention <= 0 {
		retention = 24 * time.Hour
	}

	db, err := bolt.Open(opts.Path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("replay: open %s: %w", opts.Path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNonces)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("replay: create bucket: %w", err)
	}

	return &Store{db: db, retention: retention}, nil
}

// CheckAndRecord atomically checks whether (epoch, nonce) has been seen
// before and, if not, records it. It returns true if this pair was
// already present, meaning the caller is looking at a replay.
func (s *Store) CheckAndRecord(epoch uint64, nonce []byte) (replayed bool, err error) {
	key := encodeKey(epoch, nonce)

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNonces)
		if existing := b.Get(key); existing != nil {
			replayed = true
			return nil
		}
		now := time.Now().UTC()
		value, marshalErr := now.MarshalBinary()
		if marshalErr != nil {
			return marshalErr
		}
		return b.Put(key, value)
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	return replayed, nil
}

// Prune deletes every recorded nonce whose epoch predates the retention
// window, so the store doesn't grow without bound.
func (s *Store) Prune(now time.Time) error {
	cutoffEpoch := uint64(now.Add(-s.retention).Unix())

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNonces)
		c := b.Cursor()

		var stale [][]byte
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			epoch := decodeEpoch(k)
			if epoch < cutoffEpoch {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(epoch uint64, nonce []byte) []byte {
	key := make([]byte, 8+len(nonce))
	binary.BigEndian.PutUint64(key[:8], epoch)
	copy(key[8:], nonce)
	return key
}

func decodeEpoch(key []byte) uint64 {
	if len(key) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[:8])
}
