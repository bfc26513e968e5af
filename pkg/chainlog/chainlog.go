package chainlog

import (
	"bufio"
	"crypto/sha3"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xi-lua/sentinel/pkg/canonicaljson"
	"github.com/xi-lua/sentinel/pkg/errs"
	"github.com/xi-lua/sentinel/pkg/log"
	"github.com/xi-lua/sentinel/pkg/types"
)

// Log is a Merkle-chained append-only audit log backed by a JSON-lines
// file. The zero value is not usable; construct with Open.
type Log struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	chain   []types.ChainEntry
	curRoot string
}

// Open loads an existing chain from path, if any, and returns a Log ready
// to append further entries. The containing directory is created if
// missing.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("chainlog: create dir: %w", err)
	}

	l := &Log{
		path:    path,
		curRoot: types.GenesisRoot,
	}

	corrupt, err := l.loadFromDisk()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("chainlog: open %s: %w", path, err)
	}
	l.file = f

	if corrupt {
		if _, err := l.Append("chain_recovery", types.Metadata{"reason": "unparsable chain file"}); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// loadFromDisk reads every line of the existing log file, if present, and
// rebuilds the in-memory chain and current root from it. A missing file is
// not an error: it means a fresh chain starting at the genesis root. If any
// line fails to parse, the whole file is treated as corrupt: the chain
// resets to empty at the genesis root, and Open appends a recovery event
// rather than silently dropping individual entries.
func (l *Log) loadFromDisk() (bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("chainlog: load %s: %w", l.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var chain []types.ChainEntry
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry types.ChainEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			log.WithComponent("chainlog").Error().Err(err).Msg("chain file unparsable, starting an empty chain")
			l.chain = nil
			l.curRoot = types.GenesisRoot
			return true, nil
		}
		chain = append(chain, entry)
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("chainlog: scan %s: %w", l.path, err)
	}

	l.chain = chain
	if len(chain) > 0 {
		l.curRoot = chain[len(chain)-1].MerkleRoot
	}
	return false, nil
}

// Append writes a new entry linking to the current root and returns the
// new root. The disk write happens before the in-memory slice is updated,
// so a write failure leaves the log exactly as durable as it was before
// the call.
func (l *Log) Append(event string, metadata types.Metadata) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := types.ChainEntry{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Metadata:  metadata.Clone(),
		PrevRoot:  l.curRoot,
	}

	root, err := computeRoot(entry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	entry.MerkleRoot = root

	line, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrSerialization, err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return "", fmt.Errorf("chainlog: write: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return "", fmt.Errorf("chainlog: sync: %w", err)
	}

	l.chain = append(l.chain, entry)
	l.curRoot = root

	return root, nil
}

// Verify recomputes every root in the chain from the genesis root forward
// and reports whether it matches what's stored.
func (l *Log) Verify() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	root := types.GenesisRoot
	for _, entry := range l.chain {
		if entry.PrevRoot != root {
			return false, nil
		}
		computed, err := computeRoot(types.ChainEntry{
			Timestamp: entry.Timestamp,
			Event:     entry.Event,
			Metadata:  entry.Metadata,
			PrevRoot:  entry.PrevRoot,
		})
		if err != nil {
			return false, fmt.Errorf("%w: %v", errs.ErrSerialization, err)
		}
		if computed != entry.MerkleRoot {
			return false, nil
		}
		root = entry.MerkleRoot
	}
	return true, nil
}

// CurrentRoot returns the chain's current head root.
func (l *Log) CurrentRoot() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.curRoot
}

// Len returns the number of entries in the chain.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.chain)
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// computeRoot hashes the canonical JSON encoding of an entry (minus its own
// merkle_root field) joined to the previous root, matching the original
// implementation's data|prev_root|sha3_256 construction.
func computeRoot(entry types.ChainEntry) (string, error) {
	unrooted := struct {
		Timestamp time.Time      `json:"timestamp"`
		Event     string         `json:"event"`
		Metadata  types.Metadata `json:"metadata"`
		PrevRoot  string         `json:"prev_root"`
	}{
		Timestamp: entry.Timestamp,
		Event:     entry.Event,
		Metadata:  entry.Metadata,
		PrevRoot:  entry.PrevRoot,
	}

	data, err := canonicaljson.Marshal(unrooted)
	if err != nil {
		return "", err
	}

	combined := append(data, '|')
	combined = append(combined, []byte(entry.PrevRoot)...)

	sum := sha3.Sum256(combined)
	return hex.EncodeToString(sum[:]), nil
}
