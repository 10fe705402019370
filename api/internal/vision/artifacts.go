package vision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ArtifactStore persists per-session originals and crops under the static
// directory so the web UI and messaging channels can link them.
// Layout: <base>/uploads/<session>/original.jpg, <base>/crops/<session>/obj_000.jpg.
type ArtifactStore struct {
	BaseDir string
}

func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{BaseDir: dir}
}

func (s *ArtifactStore) NewSession() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *ArtifactStore) SaveOriginal(session string, data []byte) (string, error) {
	return s.save(filepath.Join("uploads", session, "original.jpg"), data)
}

func (s *ArtifactStore) SaveCrop(session, name string, data []byte) (string, error) {
	return s.save(filepath.Join("crops", session, name+".jpg"), data)
}

// save writes the file and returns its public URL path.
func (s *ArtifactStore) save(rel string, data []byte) (string, error) {
	p := filepath.Join(s.BaseDir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return "/static/" + filepath.ToSlash(rel), nil
}

// ReadByURL maps a "/static/..." URL back to the stored file.
func (s *ArtifactStore) ReadByURL(u string) ([]byte, error) {
	rel, ok := strings.CutPrefix(u, "/static/")
	if !ok {
		return nil, fmt.Errorf("not an artifact url: %s", u)
	}
	rel = filepath.FromSlash(rel)
	if strings.Contains(rel, "..") {
		return nil, fmt.Errorf("bad artifact path: %s", u)
	}
	return os.ReadFile(filepath.Join(s.BaseDir, rel))
}
