package snapshot

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/timelock/internal/store"
)

// FormatVersion is written to every snapshot and checked on read.
const FormatVersion = "1"

// Bucket names
var (
	MetaBucket       = []byte("meta")
	VaultBucket      = []byte("vault")
	OperationsBucket = []byte("operations")
	EventsBucket     = []byte("events")
)

// Meta keys
var (
	MetaVersion    = []byte("version")
	MetaOperations = []byte("operations")
	MetaEvents     = []byte("events")
)

// vaultKey holds the single vault row.
var vaultKey = []byte("vault")

var (
	// ErrExists is returned by Export when the target file already exists.
	ErrExists = errors.New("snapshot file already exists")

	// ErrVersion is returned when a snapshot has an unknown format version.
	ErrVersion = errors.New("unsupported snapshot version")
)

// Snapshot is the full content of a snapshot file.
type Snapshot struct {
	Vault      *store.VaultRow
	Operations []store.Operation
	Events     []store.EventRecord
}

// Manifest summarizes a snapshot.
type Manifest struct {
	Version    string `json:"version"`
	Operations int    `json:"operations"`
	Events     int    `json:"events"`
	HasVault   bool   `json:"has_vault"`
}

// Manifest returns the summary of snap.
func (snap *Snapshot) Manifest() Manifest {
	return Manifest{
		Version:    FormatVersion,
		Operations: len(snap.Operations),
		Events:     len(snap.Events),
		HasVault:   snap.Vault != nil,
	}
}

// Export writes everything in s to a new snapshot file at path.
// It refuses to overwrite an existing file.
func Export(ctx context.Context, s *store.Store, path string) (Manifest, error) {
	snap, err := readStore(ctx, s)
	if err != nil {
		return Manifest{}, fmt.Errorf("export: %w", err)
	}
	if err := Write(path, snap); err != nil {
		return Manifest{}, fmt.Errorf("export: %w", err)
	}
	return snap.Manifest(), nil
}

// Import loads the snapshot at path into s, which must be empty.
// Callers should replay s afterwards to confirm the history is consistent.
func Import(ctx context.Context, path string, s *store.Store) (Manifest, error) {
	snap, err := Read(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("import: %w", err)
	}
	if err := s.ImportAll(ctx, snap.Vault, snap.Operations, snap.Events); err != nil {
		return Manifest{}, fmt.Errorf("import: %w", err)
	}
	return snap.Manifest(), nil
}

// Write creates a snapshot file at path holding snap.
func Write(path string, snap *Snapshot) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		buckets := make(map[string]*bolt.Bucket, 4)
		for _, name := range [][]byte{MetaBucket, VaultBucket, OperationsBucket, EventsBucket} {
			b, err := tx.CreateBucket(name)
			if err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
			buckets[string(name)] = b
		}

		meta := buckets[string(MetaBucket)]
		if err := meta.Put(MetaVersion, []byte(FormatVersion)); err != nil {
			return err
		}
		if err := meta.Put(MetaOperations, []byte(strconv.Itoa(len(snap.Operations)))); err != nil {
			return err
		}
		if err := meta.Put(MetaEvents, []byte(strconv.Itoa(len(snap.Events)))); err != nil {
			return err
		}

		if snap.Vault != nil {
			if err := putJSON(buckets[string(VaultBucket)], vaultKey, snap.Vault); err != nil {
				return fmt.Errorf("vault: %w", err)
			}
		}

		ops := buckets[string(OperationsBucket)]
		for _, op := range snap.Operations {
			if err := putJSON(ops, itob(op.Seq), op); err != nil {
				return fmt.Errorf("operation %d: %w", op.Seq, err)
			}
		}

		events := buckets[string(EventsBucket)]
		for _, ev := range snap.Events {
			if err := putJSON(events, itob(ev.Index), ev); err != nil {
				return fmt.Errorf("event %d: %w", ev.Index, err)
			}
		}
		return nil
	})
}

// Read loads a snapshot file and checks its version and record counts.
func Read(path string) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	snap := &Snapshot{
		Operations: []store.Operation{},
		Events:     []store.EventRecord{},
	}
	err = db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		if v := string(meta.Get(MetaVersion)); v != FormatVersion {
			return fmt.Errorf("%w %q", ErrVersion, v)
		}

		if b := tx.Bucket(VaultBucket); b != nil {
			if data := b.Get(vaultKey); data != nil {
				var row store.VaultRow
				if err := json.Unmarshal(data, &row); err != nil {
					return fmt.Errorf("vault: %w", err)
				}
				snap.Vault = &row
			}
		}

		if err := forEachJSON(tx, OperationsBucket, func(data []byte) error {
			var op store.Operation
			if err := json.Unmarshal(data, &op); err != nil {
				return err
			}
			snap.Operations = append(snap.Operations, op)
			return nil
		}); err != nil {
			return err
		}

		if err := forEachJSON(tx, EventsBucket, func(data []byte) error {
			var ev store.EventRecord
			if err := json.Unmarshal(data, &ev); err != nil {
				return err
			}
			snap.Events = append(snap.Events, ev)
			return nil
		}); err != nil {
			return err
		}

		if err := checkCount(meta, MetaOperations, len(snap.Operations)); err != nil {
			return err
		}
		return checkCount(meta, MetaEvents, len(snap.Events))
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// readStore collects the complete history held by s.
func readStore(ctx context.Context, s *store.Store) (*Snapshot, error) {
	snap := &Snapshot{}

	row, err := s.ReadVault(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		snap.Vault = &row
	}

	if snap.Operations, err = s.ReadOperations(ctx); err != nil {
		return nil, err
	}
	if snap.Events, err = s.ReadEvents(ctx, 0); err != nil {
		return nil, err
	}
	return snap, nil
}

func putJSON(b *bolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func forEachJSON(tx *bolt.Tx, bucket []byte, fn func([]byte) error) error {
	b := tx.Bucket(bucket)
	if b == nil {
		return fmt.Errorf("%s bucket not found", bucket)
	}
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		if err := fn(v); err != nil {
			return fmt.Errorf("%s %d: %w", bucket, btoi(k), err)
		}
	}
	return nil
}

func checkCount(meta *bolt.Bucket, key []byte, got int) error {
	want, err := strconv.Atoi(string(meta.Get(key)))
	if err != nil {
		return fmt.Errorf("meta %s: %w", key, err)
	}
	if want != got {
		return fmt.Errorf("meta %s: recorded %d, found %d", key, want, got)
	}
	return nil
}

// itob encodes a non-negative key so byte order matches numeric order.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	if len(b) != 8 {
		return -1
	}
	return int64(binary.BigEndian.Uint64(b))
}
