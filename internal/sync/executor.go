package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/Jercik/sync-rules-sub001/internal/utils"
)

// Summary is the per-category outcome count of a run. It is always
// reported in full, even after partial failure, and the CLI maps
// Conflicts > 0 to a non-zero exit code.
type Summary struct {
	Updates   int
	Additions int
	Deletions int
	Skips     int
	Conflicts int
}

func (s *Summary) add(other *Summary) {
	s.Updates += other.Updates
	s.Additions += other.Additions
	s.Deletions += other.Deletions
	s.Skips += other.Skips
	s.Conflicts += other.Conflicts
}

// PathValidator rejects targets outside the intended project root.
type PathValidator func(root, path string) error

// Executor applies planned actions, or previews them in dry-run. A
// failed action is logged, counted as a conflict, and execution
// continues with the rest (continue-on-error).
type Executor struct {
	roots    map[string]string
	dryRun   bool
	validate PathValidator
}

func NewExecutor(projects []ProjectInfo, dryRun bool) *Executor {
	roots := make(map[string]string, len(projects))
	for _, p := range projects {
		roots[p.Name] = p.Path
	}
	return &Executor{
		roots:    roots,
		dryRun:   dryRun,
		validate: utils.WithinRoot,
	}
}

// Execute applies actions grouped by target parent directory, creating
// each directory before any write beneath it so a write never races its
// own mkdir.
func (e *Executor) Execute(ctx context.Context, actions []*SyncAction) *Summary {
	summary := &Summary{}

	byParent := make(map[string][]*SyncAction)
	for _, a := range actions {
		parent := filepath.Dir(e.targetPath(a))
		byParent[parent] = append(byParent[parent], a)
	}

	parents := make([]string, 0, len(byParent))
	for parent := range byParent {
		parents = append(parents, parent)
	}
	sort.Strings(parents)

	for _, parent := range parents {
		group := byParent[parent]
		if !e.dryRun && e.groupNeedsDir(group) {
			if err := utils.EnsureDir(parent); err != nil {
				slog.Error("create directory failed", "dir", parent, "error", err)
				summary.Conflicts += len(group)
				continue
			}
		}
		for _, a := range group {
			select {
			case <-ctx.Done():
				return summary
			default:
			}
			if err := e.apply(a); err != nil {
				slog.Error("action failed", "path", a.RelPath, "action", a.Op, "project", a.TargetProject, "error", err)
				summary.Conflicts++
				continue
			}
			switch a.Op {
			case OpAdd:
				summary.Additions++
			case OpUpdate:
				summary.Updates++
			case OpDelete:
				summary.Deletions++
			case OpSkip:
				summary.Skips++
			}
		}
	}

	return summary
}

func (e *Executor) apply(a *SyncAction) error {
	root, ok := e.roots[a.TargetProject]
	if !ok {
		return fmt.Errorf("unknown target project %q", a.TargetProject)
	}
	target := e.targetPath(a)
	if err := e.validate(root, target); err != nil {
		return err
	}

	if e.dryRun {
		slog.Info("dry-run", "action", a.Op, "path", a.RelPath, "project", a.TargetProject)
		return nil
	}

	switch a.Op {
	case OpAdd, OpUpdate:
		if a.SourceFile == nil {
			return fmt.Errorf("%s action without source file", a.Op)
		}
		return utils.CopyFile(a.SourceFile.AbsPath, target)
	case OpDelete:
		return os.Remove(target)
	case OpSkip:
		return nil
	default:
		return fmt.Errorf("unknown action type %d", a.Op)
	}
}

func (e *Executor) targetPath(a *SyncAction) string {
	if a.TargetFile != nil {
		return a.TargetFile.AbsPath
	}
	return filepath.Join(e.roots[a.TargetProject], filepath.FromSlash(a.RelPath))
}

// groupNeedsDir reports whether the group holds at least one write to a
// validated target. Unvalidated paths must not cause directory creation.
func (e *Executor) groupNeedsDir(group []*SyncAction) bool {
	for _, a := range group {
		if a.Op != OpAdd && a.Op != OpUpdate {
			continue
		}
		root, ok := e.roots[a.TargetProject]
		if !ok {
			continue
		}
		if e.validate(root, e.targetPath(a)) == nil {
			return true
		}
	}
	return false
}
