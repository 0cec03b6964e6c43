package sync

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// ManifestFileName is the optional per-project allow-list of relative
// paths the project wants to receive. The manifest itself is never synced.
const ManifestFileName = ".sync-rules-manifest"

// Manifest constrains which missing files may be added to a project.
// A project without a manifest accepts all additions.
type Manifest struct {
	wants mapset.Set[string]
}

// LoadManifest reads a project's manifest. Returns (nil, nil) when the
// project has none.
func LoadManifest(projectRoot string) (*Manifest, error) {
	path := filepath.Join(projectRoot, ManifestFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	wants := mapset.NewSet[string]()
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wants.Add(filepath.ToSlash(line))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return &Manifest{wants: wants}, nil
}

func (m *Manifest) Wants(relPath string) bool {
	return m.wants.Contains(filepath.ToSlash(relPath))
}

// FilterByManifest drops add actions whose target project has a manifest
// that does not list the path. Updates and deletes pass through: the
// manifest only gates new files.
func FilterByManifest(actions []*SyncAction, manifests map[string]*Manifest) (kept []*SyncAction, dropped int) {
	kept = make([]*SyncAction, 0, len(actions))
	for _, a := range actions {
		if a.Op == OpAdd {
			if m := manifests[a.TargetProject]; m != nil && !m.Wants(a.RelPath) {
				dropped++
				continue
			}
		}
		kept = append(kept, a)
	}
	return kept, dropped
}
