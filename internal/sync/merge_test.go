package sync

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jercik/sync-rules-sub001/internal/scan"
)

func TestClassify(t *testing.T) {
	local := &scan.FileInfo{RelPath: "notes.local.md", Hash: "h", IsLocal: true}
	hashed := func(h string) *scan.FileInfo { return &scan.FileInfo{RelPath: "config.md", Hash: h} }

	cases := []struct {
		name     string
		src, dst *scan.FileInfo
		expected MergeClass
	}{
		{"only in source", hashed("h"), nil, MergeCopyToTarget},
		{"only in target", nil, hashed("h"), MergeSkipTargetOnly},
		{"identical hashes", hashed("h"), hashed("h"), MergeSkipIdentical},
		{"differing hashes", hashed("h1"), hashed("h2"), MergeMerge},
		{"missing source hash defaults to merge", hashed(""), hashed("h"), MergeMerge},
		{"missing target hash defaults to merge", hashed("h"), hashed(""), MergeMerge},
		{"both hashes missing", hashed(""), hashed(""), MergeMerge},
		{"local source", local, hashed("h"), MergeSkipLocal},
		{"local target", hashed("h"), local, MergeSkipLocal},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.expected, Classify(c.src, c.dst))
		})
	}
}

func TestDetectTools_MissingToolFailsFast(t *testing.T) {
	_, err := DetectTools("definitely-not-a-merge-tool", "sh")
	assert.ErrorIs(t, err, ErrToolUnavailable)

	_, err = DetectTools("sh", "definitely-not-an-editor")
	assert.ErrorIs(t, err, ErrToolUnavailable)
}

// fakeTool drops an executable shell script onto a PATH dir.
func fakeTool(t *testing.T, dir, name, script string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
}

func mergeFixture(t *testing.T) (source, target scan.Result, targetDir string) {
	t.Helper()
	sourceDir, targetDir := t.TempDir(), t.TempDir()

	writeProjectFile(t, sourceDir, "config.md", "incoming change", t1)
	writeProjectFile(t, targetDir, "config.md", "local change", t1)
	writeProjectFile(t, sourceDir, "shared.md", "same", t0)
	writeProjectFile(t, targetDir, "shared.md", "same", t0)
	writeProjectFile(t, sourceDir, "new.md", "brand new", t1)
	writeProjectFile(t, targetDir, "target-only.md", "keep me", t0)
	writeProjectFile(t, sourceDir, "notes.local.md", "private", t0)

	scanner := scan.NewScanner([]string{"*.md"}, nil)
	source, err := scanner.Scan(context.Background(), sourceDir)
	require.NoError(t, err)
	target, err = scanner.Scan(context.Background(), targetDir)
	require.NoError(t, err)
	return source, target, targetDir
}

func TestResolvePair_ConflictOpensEditor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools")
	}
	bin := t.TempDir()
	// merge tool writes conflict markers into the target and reports conflicts
	fakeTool(t, bin, "conflictool", `printf '<<<<<<< ours\nlocal change\n=======\nincoming change\n>>>>>>> theirs\n' > "$1"
exit 1`)
	fakeTool(t, bin, "fakeeditor", `echo edited >> "$1"`)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	tools, err := DetectTools("conflictool", "fakeeditor")
	require.NoError(t, err)

	source, target, targetDir := mergeFixture(t)
	summary, err := NewMergeResolver(tools).ResolvePair(context.Background(), source, target, targetDir)
	require.NoError(t, err)

	// one conflicted merge, one copy, three skips (identical, target-only, local)
	assert.Equal(t, 1, summary.Conflicts)
	assert.Equal(t, 1, summary.Additions)
	assert.Equal(t, 0, summary.Updates)
	assert.Equal(t, 3, summary.Skips)

	merged, err := os.ReadFile(filepath.Join(targetDir, "config.md"))
	require.NoError(t, err)
	assert.Contains(t, string(merged), "<<<<<<<")
	assert.Contains(t, string(merged), "edited") // editor ran against the marked file

	copied, err := os.ReadFile(filepath.Join(targetDir, "new.md"))
	require.NoError(t, err)
	assert.Equal(t, "brand new", string(copied))

	assert.FileExists(t, filepath.Join(targetDir, "target-only.md"))
	assert.NoFileExists(t, filepath.Join(targetDir, "notes.local.md"))
}

func TestResolvePair_CleanMerge(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools")
	}
	bin := t.TempDir()
	// tool merges cleanly by taking the incoming side
	fakeTool(t, bin, "cleantool", `cat "$3" > "$1"
exit 0`)
	fakeTool(t, bin, "fakeeditor", `exit 0`)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	tools, err := DetectTools("cleantool", "fakeeditor")
	require.NoError(t, err)

	source, target, targetDir := mergeFixture(t)
	summary, err := NewMergeResolver(tools).ResolvePair(context.Background(), source, target, targetDir)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Conflicts)
	assert.Equal(t, 1, summary.Updates)

	merged, err := os.ReadFile(filepath.Join(targetDir, "config.md"))
	require.NoError(t, err)
	assert.Equal(t, "incoming change", string(merged))
}

func TestResolvePair_EditorFailureAbortsBatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools")
	}
	bin := t.TempDir()
	fakeTool(t, bin, "conflictool", `exit 1`)
	fakeTool(t, bin, "brokeneditor", `exit 3`)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	tools, err := DetectTools("conflictool", "brokeneditor")
	require.NoError(t, err)

	source, target, targetDir := mergeFixture(t)
	_, err = NewMergeResolver(tools).ResolvePair(context.Background(), source, target, targetDir)
	assert.Error(t, err)
}
