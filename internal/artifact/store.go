package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"genrecast/internal/fileutil"
	"genrecast/internal/stage"
)

// Kind identifies one fitted stage.
type Kind string

const (
	KindScaler     Kind = "feature_scaler"
	KindEncoder    Kind = "label_encoder"
	KindProjection Kind = "pca_projection"
	KindModel      Kind = "model"
)

// Kinds lists every artifact in replay order.
func Kinds() []Kind {
	return []Kind{KindScaler, KindEncoder, KindProjection, KindModel}
}

// FileName returns the stable file name for the kind.
func (k Kind) FileName() string { return string(k) + ".gob" }

const (
	formatVersion = 1
	lockFileName  = ".artifacts.lock"
	lockRetry     = 100 * time.Millisecond
)

type envelope struct {
	Kind    Kind
	Version int
	Payload []byte
}

// Store reads and writes artifacts under Root.
type Store struct {
	Root string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first write.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

// Path returns the location of kind.
func (s *Store) Path(kind Kind) string {
	return filepath.Join(s.Root, kind.FileName())
}

// Save gob-encodes value and atomically replaces the artifact file. Pass a
// pointer to an interface to persist an interface value.
func (s *Store) Save(kind Kind, value any) (string, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(value); err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(envelope{Kind: kind, Version: formatVersion, Payload: payload.Bytes()}); err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", kind, err)
	}
	path := s.Path(kind)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", kind, err)
	}
	return path, nil
}

// Load decodes the artifact into the value pointed to by into. An absent file
// is stage.ErrNotFitted.
func (s *Store) Load(kind Kind, into any) error {
	_, err := s.load(kind, into, "")
	return err
}

// LoadVerified is Load that additionally requires the file digest to match
// the manifest entry for kind.
func (s *Store) LoadVerified(kind Kind, into any, m *Manifest) error {
	want, ok := m.Digests[kind]
	if !ok {
		return stage.Wrap(stage.ErrNotFitted, "artifact", "load", fmt.Sprintf("manifest has no entry for %s", kind), nil)
	}
	_, err := s.load(kind, into, want)
	return err
}

func (s *Store) load(kind Kind, into any, wantDigest string) (string, error) {
	data, err := os.ReadFile(s.Path(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", stage.Wrap(stage.ErrNotFitted, "artifact", "load", fmt.Sprintf("%s has not been fitted", kind), err)
		}
		return "", fmt.Errorf("read %s: %w", kind, err)
	}
	digest := digestOf(data)
	if wantDigest != "" && digest != wantDigest {
		return "", stage.Wrap(stage.ErrNotFitted, "artifact", "load",
			fmt.Sprintf("%s does not belong to the recorded training run", kind), nil)
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return "", fmt.Errorf("decode %s envelope: %w", kind, err)
	}
	if env.Kind != kind {
		return "", fmt.Errorf("decode %s: file holds %s", kind, env.Kind)
	}
	if env.Version != formatVersion {
		return "", stage.Wrap(stage.ErrNotFitted, "artifact", "load",
			fmt.Sprintf("%s format version %d, want %d", kind, env.Version, formatVersion), nil)
	}
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(into); err != nil {
		return "", fmt.Errorf("decode %s: %w", kind, err)
	}
	return digest, nil
}

// Digest returns the SHA-256 of the artifact file.
func (s *Store) Digest(kind Kind) (string, error) {
	digest, err := fileutil.FileSHA256(s.Path(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", stage.Wrap(stage.ErrNotFitted, "artifact", "digest", fmt.Sprintf("%s has not been fitted", kind), err)
		}
		return "", err
	}
	return digest, nil
}

func digestOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WithWriteLock runs fn while holding the exclusive artifacts lock. It waits
// for in-flight readers until ctx is done.
func (s *Store) WithWriteLock(ctx context.Context, fn func() error) error {
	return s.withLock(ctx, false, fn)
}

// WithReadLock runs fn while holding a shared artifacts lock.
func (s *Store) WithReadLock(ctx context.Context, fn func() error) error {
	return s.withLock(ctx, true, fn)
}

func (s *Store) withLock(ctx context.Context, shared bool, fn func() error) error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return fmt.Errorf("create artifacts root: %w", err)
	}
	lock := flock.New(filepath.Join(s.Root, lockFileName))
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = lock.TryRLockContext(ctx, lockRetry)
	} else {
		ok, err = lock.TryLockContext(ctx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("acquire artifacts lock: %w", err)
	}
	if !ok {
		return errors.New("acquire artifacts lock: not acquired")
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}
