package sync

import (
	"sort"

	"github.com/Jercik/sync-rules-sub001/internal/scan"
)

type OpType uint8

var opTypeNames = []string{
	"add",
	"update",
	"delete",
	"skip",
}

const (
	OpAdd OpType = iota
	OpUpdate
	OpDelete
	OpSkip
)

func (op OpType) String() string {
	return opTypeNames[op]
}

// SyncAction is one concrete filesystem action against a single target
// project. Add carries only a source file; Update carries both sides.
// TargetProject is never the action's own source project.
type SyncAction struct {
	Op            OpType
	RelPath       string
	SourceProject string
	TargetProject string
	SourceFile    *scan.FileInfo
	TargetFile    *scan.FileInfo
}

// PlanActions expands one decision into per-project actions. Planning is
// pure: the same state and decision always yield the same list.
func PlanActions(state *GlobalFileState, d Decision) []*SyncAction {
	switch d.Action {
	case DecisionSkip:
		return nil
	case DecisionDeleteAll:
		return planDeleteAll(state)
	case DecisionUseNewest, DecisionUseSpecific:
		return planFromSource(state, d)
	default:
		return nil
	}
}

func planDeleteAll(state *GlobalFileState) []*SyncAction {
	actions := make([]*SyncAction, 0, len(state.Versions))
	for _, name := range sortedKeys(state.Versions) {
		v := state.Versions[name]
		actions = append(actions, &SyncAction{
			Op:            OpDelete,
			RelPath:       state.RelPath,
			TargetProject: v.Project,
			TargetFile:    v.File,
		})
	}
	return actions
}

func planFromSource(state *GlobalFileState, d Decision) []*SyncAction {
	source := state.Newest
	if d.Action == DecisionUseSpecific {
		// absent named project is a defensive no-op
		source = state.Versions[d.SourceProject]
	}
	if source == nil {
		return nil
	}

	var actions []*SyncAction
	for _, name := range sortedKeys(state.Versions) {
		v := state.Versions[name]
		if v.Project == source.Project {
			continue
		}
		if v.File.Hash != "" && v.File.Hash == source.File.Hash {
			continue
		}
		actions = append(actions, &SyncAction{
			Op:            OpUpdate,
			RelPath:       state.RelPath,
			SourceProject: source.Project,
			TargetProject: v.Project,
			SourceFile:    source.File,
			TargetFile:    v.File,
		})
	}

	missing := state.MissingFrom.ToSlice()
	sort.Strings(missing)
	for _, name := range missing {
		actions = append(actions, &SyncAction{
			Op:            OpAdd,
			RelPath:       state.RelPath,
			SourceProject: source.Project,
			TargetProject: name,
			SourceFile:    source.File,
		})
	}
	return actions
}
