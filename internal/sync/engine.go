package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/Jercik/sync-rules-sub001/internal/prompt"
	"github.com/Jercik/sync-rules-sub001/internal/scan"
	"github.com/Jercik/sync-rules-sub001/internal/utils"
)

var (
	ErrNoProjects = errors.New("no scannable projects")
	ErrRunLocked  = errors.New("another sync run holds the lock")
)

// Engine drives one multi-project run: concurrent scans, sequential
// decisions, then a single execution pass over all planned actions.
type Engine struct {
	Projects []ProjectInfo
	Scanner  *scan.Scanner
	// Prompter drives the interactive decision chain. Nil means
	// non-interactive: every unresolved state takes use-newest.
	Prompter    prompt.Prompter
	DryRun      bool
	AutoConfirm bool
	// LockPath guards against concurrent runs. Empty disables locking.
	LockPath string
}

func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if e.LockPath != "" {
		if err := utils.EnsureParent(e.LockPath); err != nil {
			return nil, err
		}
		lock := flock.New(e.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !locked {
			return nil, ErrRunLocked
		}
		defer lock.Unlock()
	}

	scans := e.scanProjects(ctx)
	if len(scans) == 0 {
		return nil, ErrNoProjects
	}

	projects := make([]ProjectInfo, 0, len(scans))
	manifests := make(map[string]*Manifest, len(scans))
	for _, ps := range scans {
		projects = append(projects, ps.Project)
		m, err := LoadManifest(ps.Project.Path)
		if err != nil {
			slog.Warn("manifest unreadable, additions unconstrained", "project", ps.Project.Name, "error", err)
			continue
		}
		if m != nil {
			manifests[ps.Project.Name] = m
		}
	}

	states := BuildGlobalStates(scans)

	summary := &Summary{}
	chain := DefaultChain()
	var actions []*SyncAction

	// decision-making is strictly sequential: it may block on a prompt
	for _, rel := range sortedKeys(states) {
		state := states[rel]
		if state.AllIdentical && state.MissingFrom.Cardinality() == 0 {
			summary.Skips++
			continue
		}

		var d Decision
		if e.interactive() {
			var err error
			d, err = ResolveDecision(state, chain, e.Prompter)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", rel, err)
			}
		} else {
			d = ResolveAuto(state)
		}

		if d.Action == DecisionSkip {
			summary.Skips++
			continue
		}

		planned := PlanActions(state, d)
		planned, dropped := FilterByManifest(planned, manifests)
		summary.Skips += dropped
		actions = append(actions, planned...)
	}

	executor := NewExecutor(projects, e.DryRun)
	summary.add(executor.Execute(ctx, actions))
	return summary, nil
}

func (e *Engine) interactive() bool {
	return e.Prompter != nil && !e.AutoConfirm && !e.DryRun
}

// scanProjects scans every project concurrently. One project's failure
// excludes it from the rest of the run with a warning; it never aborts
// the other projects.
func (e *Engine) scanProjects(ctx context.Context) []ProjectScan {
	results := make([]*ProjectScan, len(e.Projects))

	g, gctx := errgroup.WithContext(ctx)
	for i, project := range e.Projects {
		i, project := i, project
		g.Go(func() error {
			files, err := e.Scanner.Scan(gctx, project.Path)
			if err != nil {
				slog.Warn("project excluded from run", "project", project.Name, "error", err)
				return nil
			}
			results[i] = &ProjectScan{Project: project, Files: files}
			return nil
		})
	}
	// scan errors are absorbed above, the group only propagates ctx cancellation
	_ = g.Wait()

	scans := make([]ProjectScan, 0, len(results))
	for _, ps := range results {
		if ps != nil {
			scans = append(scans, *ps)
		}
	}
	return scans
}
