package replay

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(Options{Path: filepath.Join(dir, "replay.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCheckAndRecordDetectsReplay(t *testing.T) {
	s := testStore(t)
	nonce := []byte("abc123")

	replayed, err := s.CheckAndRecord(1, nonce)
	if err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if replayed {
		t.Fatal("CheckAndRecord() reported a replay on first sight")
	}

	replayed, err = s.CheckAndRecord(1, nonce)
	if err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if !replayed {
		t.Fatal("CheckAndRecord() did not detect a repeated (epoch, nonce) pair")
	}
}

func TestDifferentEpochsAreIndependent(t *testing.T) {
	s := testStore(t)
	nonce := []byte("same-nonce")

	if replayed, err := s.CheckAndRecord(1, nonce); err != nil || replayed {
		t.Fatalf("CheckAndRecord(epoch=1) replayed=%v err=%v", replayed, err)
	}
	if replayed, err := s.CheckAndRecord(2, nonce); err != nil || replayed {
		t.Fatalf("CheckAndRecord(epoch=2) with the same nonce replayed=%v err=%v", replayed, err)
	}
}

func TestPruneRemovesStaleEpochs(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{Path: filepath.Join(dir, "replay.db"), Retention: time.Hour})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	now := time.Now()
	oldEpoch := uint64(now.Add(-2 * time.Hour).Unix())
	freshEpoch := uint64(now.Unix())

	if _, err := s.CheckAndRecord(oldEpoch, []byte("old")); err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if _, err := s.CheckAndRecord(freshEpoch, []byte("fresh")); err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}

	if err := s.Prune(now); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	replayed, err := s.CheckAndRecord(oldEpoch, []byte("old"))
	if err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if replayed {
		t.Error("stale epoch's nonce survived Prune()")
	}

	replayed, err = s.CheckAndRecord(freshEpoch, []byte("fresh"))
	if err != nil {
		t.Fatalf("CheckAndRecord() error = %v", err)
	}
	if !replayed {
		t.Error("fresh epoch's nonce was pruned away")
	}
}
