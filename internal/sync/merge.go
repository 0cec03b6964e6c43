package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/Jercik/sync-rules-sub001/internal/scan"
	"github.com/Jercik/sync-rules-sub001/internal/utils"
)

// MergeClass classifies one relative path across a source/target pair.
type MergeClass uint8

var mergeClassNames = []string{
	"CopyToTarget",
	"Merge",
	"SkipIdentical",
	"SkipTargetOnly",
	"SkipLocal",
}

const (
	MergeCopyToTarget MergeClass = iota
	MergeMerge
	MergeSkipIdentical
	MergeSkipTargetOnly
	MergeSkipLocal
)

func (c MergeClass) String() string {
	return mergeClassNames[c]
}

var ErrToolUnavailable = errors.New("required external tool not found")

// ToolSet caches external tool availability for a run. It is resolved
// once up front and passed through explicitly so nothing hides behind
// package state.
type ToolSet struct {
	MergeTool string
	Editor    string
}

// DetectTools resolves the merge tool and interactive editor. Empty
// arguments fall back to `git` and `$EDITOR` (then `vi`). A missing
// tool is fatal for the whole batch.
func DetectTools(mergeTool, editor string) (*ToolSet, error) {
	if mergeTool == "" {
		mergeTool = "git"
	}
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	mergePath, err := exec.LookPath(mergeTool)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolUnavailable, mergeTool)
	}
	editorPath, err := exec.LookPath(editor)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolUnavailable, editor)
	}

	return &ToolSet{MergeTool: mergePath, Editor: editorPath}, nil
}

// MergeResolver is the legacy two-directory mode: it consumes two
// scanner results directly and resolves content conflicts with an
// external three-way merge, falling back to an interactive editor.
// Unlike the Executor it fails fast: a tool error aborts the batch.
type MergeResolver struct {
	tools *ToolSet
}

func NewMergeResolver(tools *ToolSet) *MergeResolver {
	return &MergeResolver{tools: tools}
}

// Classify decides what happens to one relative path. A missing hash on
// either side defaults conservatively to a merge.
func Classify(src, dst *scan.FileInfo) MergeClass {
	switch {
	case src != nil && src.IsLocal, dst != nil && dst.IsLocal:
		return MergeSkipLocal
	case src == nil:
		// target-only files are never auto-deleted
		return MergeSkipTargetOnly
	case dst == nil:
		return MergeCopyToTarget
	case src.Hash != "" && src.Hash == dst.Hash:
		return MergeSkipIdentical
	default:
		return MergeMerge
	}
}

// ResolvePair processes every path present on either side.
func (r *MergeResolver) ResolvePair(ctx context.Context, source, target scan.Result, targetRoot string) (*Summary, error) {
	summary := &Summary{}

	paths := make(map[string]struct{}, len(source)+len(target))
	for rel := range source {
		paths[rel] = struct{}{}
	}
	for rel := range target {
		paths[rel] = struct{}{}
	}
	ordered := make([]string, 0, len(paths))
	for rel := range paths {
		ordered = append(ordered, rel)
	}
	sort.Strings(ordered)

	for _, rel := range ordered {
		src, dst := source[rel], target[rel]
		class := Classify(src, dst)
		slog.Debug("classified", "path", rel, "class", class)

		switch class {
		case MergeSkipIdentical, MergeSkipTargetOnly, MergeSkipLocal:
			summary.Skips++
		case MergeCopyToTarget:
			dstPath := filepath.Join(targetRoot, filepath.FromSlash(rel))
			if err := utils.CopyFile(src.AbsPath, dstPath); err != nil {
				return summary, fmt.Errorf("copy %s: %w", rel, err)
			}
			summary.Additions++
		case MergeMerge:
			conflicted, err := r.merge(ctx, dst.AbsPath, src.AbsPath)
			if err != nil {
				return summary, fmt.Errorf("merge %s: %w", rel, err)
			}
			if conflicted {
				slog.Warn("conflicts occurred", "path", rel)
				summary.Conflicts++
			} else {
				summary.Updates++
			}
		}
	}

	return summary, nil
}

// merge runs a non-interactive three-way merge of target (local) and
// source (incoming) over an empty scratch ancestor, writing the result
// into the target file. A conflicted merge leaves inline markers in the
// target and hands it to the interactive editor; that path is always
// reported as conflicted regardless of what the user does there.
func (r *MergeResolver) merge(ctx context.Context, targetPath, sourcePath string) (conflicted bool, err error) {
	ancestor, err := os.CreateTemp("", "sync-rules-ancestor-*")
	if err != nil {
		return false, fmt.Errorf("create ancestor file: %w", err)
	}
	ancestorPath := ancestor.Name()
	ancestor.Close()
	defer os.Remove(ancestorPath)

	cmd := r.mergeCommand(ctx, targetPath, ancestorPath, sourcePath)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() < 0 {
			return false, fmt.Errorf("merge tool: %w", err)
		}
		// non-zero exit: target now holds conflict markers
		if err := r.openEditor(ctx, targetPath); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func (r *MergeResolver) mergeCommand(ctx context.Context, target, ancestor, source string) *exec.Cmd {
	if filepath.Base(r.tools.MergeTool) == "git" {
		return exec.CommandContext(ctx, r.tools.MergeTool, "merge-file", target, ancestor, source)
	}
	return exec.CommandContext(ctx, r.tools.MergeTool, target, ancestor, source)
}

// openEditor blocks until the user saves and closes the editor.
func (r *MergeResolver) openEditor(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, r.tools.Editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	return nil
}
