package sync

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Jercik/sync-rules-sub001/internal/scan"
)

// FileVersion is one project's copy of a relative path.
type FileVersion struct {
	Project      string
	File         *scan.FileInfo
	LastModified time.Time
}

// GlobalFileState is the aggregated cross-project view of one relative
// path. It is built once per aggregation pass and never mutated after.
type GlobalFileState struct {
	RelPath  string
	Versions map[string]*FileVersion
	// MissingFrom holds the names of projects with no version of this
	// path. Versions keys and MissingFrom are disjoint and together
	// cover every project in the run.
	MissingFrom mapset.Set[string]
	// Newest is the version with the largest LastModified. Ties go to
	// the lexicographically smallest project name.
	Newest *FileVersion
	// AllIdentical is true only when at least two versions exist, every
	// version has a hash, and all hashes are equal.
	AllIdentical bool
}

// BuildGlobalStates aggregates per-project scan results into one state
// per relative path, excluding local files. It runs single-threaded over
// results that were collected up front, so no locking is needed.
func BuildGlobalStates(scans []ProjectScan) map[string]*GlobalFileState {
	// sorted project order makes the newest-version tie-break deterministic
	ordered := make([]ProjectScan, len(scans))
	copy(ordered, scans)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Project.Name < ordered[j].Project.Name
	})

	allProjects := mapset.NewSet[string]()
	for _, ps := range ordered {
		allProjects.Add(ps.Project.Name)
	}

	states := make(map[string]*GlobalFileState)
	for _, ps := range ordered {
		for rel, file := range ps.Files {
			// local files and the manifest itself never cross projects
			if file.IsLocal || rel == ManifestFileName {
				continue
			}
			state, ok := states[rel]
			if !ok {
				state = &GlobalFileState{
					RelPath:  rel,
					Versions: make(map[string]*FileVersion),
				}
				states[rel] = state
			}
			state.Versions[ps.Project.Name] = &FileVersion{
				Project:      ps.Project.Name,
				File:         file,
				LastModified: file.LastModified,
			}
		}
	}

	for _, state := range states {
		present := mapset.NewSet[string]()
		for name := range state.Versions {
			present.Add(name)
		}
		state.MissingFrom = allProjects.Difference(present)

		for _, name := range sortedKeys(state.Versions) {
			v := state.Versions[name]
			if state.Newest == nil || v.LastModified.After(state.Newest.LastModified) {
				state.Newest = v
			}
		}

		state.AllIdentical = allIdentical(state.Versions)
	}

	return states
}

func allIdentical(versions map[string]*FileVersion) bool {
	if len(versions) < 2 {
		return false
	}
	var first string
	for _, name := range sortedKeys(versions) {
		v := versions[name]
		if v.File.Hash == "" {
			return false
		}
		if first == "" {
			first = v.File.Hash
		} else if v.File.Hash != first {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
