package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZentaChain/wasocket/pkg/crypto"
)

func openTestStore(t *testing.T) (*KeyStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.db")
	ks, err := OpenKeyStore(path)
	if err != nil {
		t.Fatalf("OpenKeyStore() error = %v", err)
	}
	t.Cleanup(func() { ks.Close() })
	return ks, path
}

func TestIdentityNotFound(t *testing.T) {
	ks, _ := openTestStore(t)
	if _, err := ks.Identity(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Identity() error = %v, want ErrNotFound", err)
	}
}

func TestLoadOrCreateIdentity(t *testing.T) {
	ks, path := openTestStore(t)

	first, created, err := ks.LoadOrCreateIdentity(nil)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity() error = %v", err)
	}
	if !created {
		t.Error("expected a new identity on first use")
	}

	second, created, err := ks.LoadOrCreateIdentity(nil)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity() error = %v", err)
	}
	if created {
		t.Error("expected the stored identity on second use")
	}
	if first.Pub != second.Pub || first.Priv != second.Priv {
		t.Error("stored identity differs from the generated one")
	}

	// Survives reopening the file.
	ks.Close()
	reopened, err := OpenKeyStore(path)
	if err != nil {
		t.Fatalf("OpenKeyStore() error = %v", err)
	}
	defer reopened.Close()
	third, err := reopened.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if third.Pub != first.Pub {
		t.Error("identity changed after reopen")
	}
}

func TestSaveIdentityReplaces(t *testing.T) {
	ks, _ := openTestStore(t)
	a, _ := crypto.GenerateKeyPair(nil)
	b, _ := crypto.GenerateKeyPair(nil)
	if err := ks.SaveIdentity(a); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	if err := ks.SaveIdentity(b); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	got, err := ks.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if got.Pub != b.Pub {
		t.Error("expected the most recent identity")
	}
}

func TestRecordServerKey(t *testing.T) {
	ks, _ := openTestStore(t)
	keyA := bytes.Repeat([]byte{0xAA}, 32)
	keyB := bytes.Repeat([]byte{0xBB}, 32)
	t0 := time.Unix(1_700_000_000, 0)

	if err := ks.RecordServerKey(keyA, 2, t0); err != nil {
		t.Fatalf("RecordServerKey() error = %v", err)
	}
	if err := ks.RecordServerKey(keyB, 3, t0.Add(time.Minute)); err != nil {
		t.Fatalf("RecordServerKey() error = %v", err)
	}
	if err := ks.RecordServerKey(keyA, 4, t0.Add(time.Hour)); err != nil {
		t.Fatalf("RecordServerKey() error = %v", err)
	}

	keys, err := ks.ServerKeys()
	if err != nil {
		t.Fatalf("ServerKeys() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
	if !bytes.Equal(keys[0].PublicKey, keyA) || keys[0].LeafSerial != 4 {
		t.Errorf("unexpected first key: %+v", keys[0])
	}
	if !keys[0].FirstSeen.Equal(t0) || !keys[0].LastSeen.Equal(t0.Add(time.Hour)) {
		t.Errorf("unexpected timestamps: %v..%v", keys[0].FirstSeen, keys[0].LastSeen)
	}
	if keys[0].Fingerprint != crypto.Fingerprint(keyA) {
		t.Errorf("unexpected fingerprint %q", keys[0].Fingerprint)
	}
}
