// Package storage persists the client identity and the server keys seen
// during handshakes in a local SQLite database.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZentaChain/wasocket/pkg/crypto"
)

var (
	ErrNotFound = errors.New("storage: not found")
)

// KeyStore manages identity key storage
type KeyStore struct {
	db *sql.DB
}

// ServerKey is a server static key accepted by a handshake.
type ServerKey struct {
	Fingerprint string
	PublicKey   []byte
	LeafSerial  uint32
	FirstSeen   time.Time
	LastSeen    time.Time
}

// OpenKeyStore opens or creates the database at dbPath.
func OpenKeyStore(dbPath string) (*KeyStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	ks := &KeyStore{db: db}
	if err := ks.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return ks, nil
}

func (ks *KeyStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS identity (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		private_key BLOB NOT NULL,
		public_key BLOB NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE TABLE IF NOT EXISTS server_keys (
		fingerprint TEXT PRIMARY KEY,
		public_key BLOB NOT NULL,
		leaf_serial INTEGER NOT NULL,
		first_seen INTEGER NOT NULL,
		last_seen INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_server_keys_last_seen ON server_keys(last_seen DESC);
	`
	if _, err := ks.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Identity returns the stored static key pair, or ErrNotFound.
func (ks *KeyStore) Identity() (*crypto.KeyPair, error) {
	var priv, pub []byte
	err := ks.db.QueryRow("SELECT private_key, public_key FROM identity WHERE id = 1").Scan(&priv, &pub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	defer crypto.Zero(priv)
	if len(priv) != crypto.KeySize {
		return nil, fmt.Errorf("%w: stored private key is %d bytes", crypto.ErrInvalidKey, len(priv))
	}
	var raw [crypto.KeySize]byte
	copy(raw[:], priv)
	kp, err := crypto.NewKeyPairFromPrivateKey(raw)
	crypto.Zero(raw[:])
	if err != nil {
		return nil, err
	}
	if string(kp.Pub[:]) != string(pub) {
		kp.Zero()
		return nil, fmt.Errorf("%w: stored public key does not match private key", crypto.ErrInvalidKey)
	}
	return kp, nil
}

// SaveIdentity stores kp as the static identity, replacing any previous one.
func (ks *KeyStore) SaveIdentity(kp *crypto.KeyPair) error {
	_, err := ks.db.Exec(
		"INSERT OR REPLACE INTO identity (id, private_key, public_key) VALUES (1, ?, ?)",
		kp.Priv[:], kp.Pub[:],
	)
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}
	return nil
}

// LoadOrCreateIdentity returns the stored identity, generating and saving a
// new one from random on first use.
func (ks *KeyStore) LoadOrCreateIdentity(random io.Reader) (kp *crypto.KeyPair, created bool, err error) {
	kp, err = ks.Identity()
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	if kp, err = crypto.GenerateKeyPair(random); err != nil {
		return nil, false, err
	}
	if err = ks.SaveIdentity(kp); err != nil {
		kp.Zero()
		return nil, false, err
	}
	return kp, true, nil
}

// RecordServerKey notes that a handshake accepted pub at time seen.
func (ks *KeyStore) RecordServerKey(pub []byte, leafSerial uint32, seen time.Time) error {
	_, err := ks.db.Exec(`
		INSERT INTO server_keys (fingerprint, public_key, leaf_serial, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET last_seen = excluded.last_seen, leaf_serial = excluded.leaf_serial`,
		crypto.Fingerprint(pub), pub, leafSerial, seen.Unix(), seen.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to record server key: %w", err)
	}
	return nil
}

// ServerKeys lists recorded server keys, most recently seen first.
func (ks *KeyStore) ServerKeys() ([]ServerKey, error) {
	rows, err := ks.db.Query(`
		SELECT fingerprint, public_key, leaf_serial, first_seen, last_seen
		FROM server_keys ORDER BY last_seen DESC, fingerprint`)
	if err != nil {
		return nil, fmt.Errorf("failed to query server keys: %w", err)
	}
	defer rows.Close()

	var keys []ServerKey
	for rows.Next() {
		var k ServerKey
		var firstSeen, lastSeen int64
		if err := rows.Scan(&k.Fingerprint, &k.PublicKey, &k.LeafSerial, &firstSeen, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan server key: %w", err)
		}
		k.FirstSeen = time.Unix(firstSeen, 0)
		k.LastSeen = time.Unix(lastSeen, 0)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database connection
func (ks *KeyStore) Close() error {
	return ks.db.Close()
}
