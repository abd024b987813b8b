package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"genrecast/internal/fileutil"
	"genrecast/internal/stage"
)

// ManifestFile is written last by a successful training run.
const ManifestFile = "manifest.json"

// Manifest describes the artifact set produced by one training run.
type Manifest struct {
	RunID          string          `json:"run_id"`
	CreatedAt      time.Time       `json:"created_at"`
	Strategy       string          `json:"strategy"`
	Tuned          bool            `json:"tuned"`
	FeatureColumns []string        `json:"feature_columns"`
	Labels         []string        `json:"labels"`
	Components     int             `json:"components"`
	Digests        map[Kind]string `json:"digests"`
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.Root, ManifestFile)
}

// Invalidate removes the manifest so the replay path reports not fitted while
// a new training run replaces artifacts.
func (s *Store) Invalidate() error {
	if err := os.Remove(s.manifestPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove manifest: %w", err)
	}
	return nil
}

// WriteManifest records digests of every artifact kind and writes the
// manifest atomically. Every artifact must already exist.
func (s *Store) WriteManifest(m Manifest) (*Manifest, error) {
	m.Digests = make(map[Kind]string, len(Kinds()))
	for _, kind := range Kinds() {
		digest, err := s.Digest(kind)
		if err != nil {
			return nil, err
		}
		m.Digests[kind] = digest
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.manifestPath(), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return &m, nil
}

// ReadManifest loads the manifest. An absent manifest is stage.ErrNotFitted.
func (s *Store) ReadManifest() (*Manifest, error) {
	data, err := os.ReadFile(s.manifestPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, stage.Wrap(stage.ErrNotFitted, "artifact", "manifest", "no completed training run", err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
