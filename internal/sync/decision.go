package sync

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Jercik/sync-rules-sub001/internal/prompt"
)

type DecisionAction string

const (
	DecisionUseNewest   DecisionAction = "use-newest"
	DecisionUseSpecific DecisionAction = "use-specific"
	DecisionDeleteAll   DecisionAction = "delete-all"
	DecisionSkip        DecisionAction = "skip"
)

// Decision is the single resolution for one file state.
// SourceProject is set only for use-specific.
type Decision struct {
	Action        DecisionAction
	SourceProject string
}

// ErrNoStrategy should be unreachable: the default strategy always
// matches. Seeing it means the chain was constructed without it.
var ErrNoStrategy = errors.New("no decision strategy matched")

// Strategy resolves one aggregated file state into a decision. The chain
// is evaluated top to bottom and the first match wins, so order matters.
type Strategy interface {
	Matches(s *GlobalFileState) bool
	Resolve(s *GlobalFileState, p prompt.Prompter) (Decision, error)
}

// DefaultChain returns the fixed strategy order. The final entry always
// matches, guaranteeing every state yields exactly one decision.
func DefaultChain() []Strategy {
	return []Strategy{
		singleProjectStrategy{},
		identicalWithMissingStrategy{},
		differentVersionsStrategy{},
		defaultStrategy{},
	}
}

// ResolveDecision walks the chain and resolves the first matching
// strategy against the prompter. A delete-all choice gets a second
// confirmation; declining it downgrades to skip.
func ResolveDecision(state *GlobalFileState, chain []Strategy, p prompt.Prompter) (Decision, error) {
	for _, strategy := range chain {
		if !strategy.Matches(state) {
			continue
		}
		d, err := strategy.Resolve(state, p)
		if err != nil {
			return Decision{}, err
		}
		if d.Action == DecisionDeleteAll {
			ok, err := p.Confirm(fmt.Sprintf("Delete %s from %d project(s)?", state.RelPath, len(state.Versions)))
			if err != nil {
				return Decision{}, err
			}
			if !ok {
				return Decision{Action: DecisionSkip}, nil
			}
		}
		return d, nil
	}
	return Decision{}, fmt.Errorf("%w: %s", ErrNoStrategy, state.RelPath)
}

// ResolveAuto is the non-interactive path used by auto-confirm and
// dry-run: anything not already consistent resolves to use-newest
// without touching the prompt machinery.
func ResolveAuto(state *GlobalFileState) Decision {
	if state.AllIdentical && state.MissingFrom.Cardinality() == 0 {
		return Decision{Action: DecisionSkip}
	}
	return Decision{Action: DecisionUseNewest}
}

const (
	choiceNewest    = "newest"
	choiceDelete    = "delete"
	choiceSkip      = "skip"
	choiceUsePrefix = "use:"
)

func decisionFromChoice(choice string) Decision {
	switch {
	case choice == choiceNewest:
		return Decision{Action: DecisionUseNewest}
	case choice == choiceDelete:
		return Decision{Action: DecisionDeleteAll}
	case strings.HasPrefix(choice, choiceUsePrefix):
		return Decision{Action: DecisionUseSpecific, SourceProject: strings.TrimPrefix(choice, choiceUsePrefix)}
	default:
		return Decision{Action: DecisionSkip}
	}
}

// singleProjectStrategy: exactly one version exists and at least one
// project is missing it.
type singleProjectStrategy struct{}

func (singleProjectStrategy) Matches(s *GlobalFileState) bool {
	return len(s.Versions) == 1 && s.MissingFrom.Cardinality() > 0
}

func (singleProjectStrategy) Resolve(s *GlobalFileState, p prompt.Prompter) (Decision, error) {
	owner := s.Newest.Project
	title := fmt.Sprintf("%s exists only in %s (missing from %d project(s))", s.RelPath, owner, s.MissingFrom.Cardinality())
	choice, err := p.Select(title, []prompt.Option{
		{Label: fmt.Sprintf("Copy to missing projects from %s", owner), Value: choiceNewest},
		{Label: "Delete everywhere", Value: choiceDelete},
		{Label: "Skip", Value: choiceSkip},
	})
	if err != nil {
		return Decision{}, err
	}
	return decisionFromChoice(choice), nil
}

// identicalWithMissingStrategy: two or more identical versions, but some
// projects are missing the file.
type identicalWithMissingStrategy struct{}

func (identicalWithMissingStrategy) Matches(s *GlobalFileState) bool {
	return len(s.Versions) >= 2 && s.AllIdentical && s.MissingFrom.Cardinality() > 0
}

func (identicalWithMissingStrategy) Resolve(s *GlobalFileState, p prompt.Prompter) (Decision, error) {
	title := fmt.Sprintf("%s is identical in %d project(s) but missing from %d", s.RelPath, len(s.Versions), s.MissingFrom.Cardinality())
	choice, err := p.Select(title, []prompt.Option{
		{Label: "Add to missing projects", Value: choiceNewest},
		{Label: "Delete everywhere", Value: choiceDelete},
		{Label: "Skip", Value: choiceSkip},
	})
	if err != nil {
		return Decision{}, err
	}
	return decisionFromChoice(choice), nil
}

// differentVersionsStrategy: two or more versions with differing content.
// Versions are grouped by hash and offered newest group first.
type differentVersionsStrategy struct{}

func (differentVersionsStrategy) Matches(s *GlobalFileState) bool {
	return len(s.Versions) >= 2 && !s.AllIdentical
}

func (differentVersionsStrategy) Resolve(s *GlobalFileState, p prompt.Prompter) (Decision, error) {
	groups := groupVersionsByHash(s)

	options := make([]prompt.Option, 0, len(groups)+2)
	for _, g := range groups {
		label := fmt.Sprintf("Use version from %s (%s, %d project(s))",
			g.newest.Project, g.newest.LastModified.Format(time.RFC3339), len(g.members))
		options = append(options, prompt.Option{Label: label, Value: choiceUsePrefix + g.newest.Project})
	}
	options = append(options,
		prompt.Option{Label: "Delete everywhere", Value: choiceDelete},
		prompt.Option{Label: "Skip", Value: choiceSkip},
	)

	title := fmt.Sprintf("%s differs across %d project(s)", s.RelPath, len(s.Versions))
	choice, err := p.Select(title, options)
	if err != nil {
		return Decision{}, err
	}
	return decisionFromChoice(choice), nil
}

type versionGroup struct {
	members []*FileVersion
	// newest is the most-recently-modified member; it represents the
	// group in the prompt and as the use-specific source.
	newest *FileVersion
}

func groupVersionsByHash(s *GlobalFileState) []*versionGroup {
	byHash := make(map[string]*versionGroup)
	for _, name := range sortedKeys(s.Versions) {
		v := s.Versions[name]
		key := v.File.Hash
		if key == "" {
			// a version without a hash differs from everything,
			// including other hashless versions
			key = "\x00" + v.Project
		}
		g, ok := byHash[key]
		if !ok {
			g = &versionGroup{}
			byHash[key] = g
		}
		g.members = append(g.members, v)
		if g.newest == nil || v.LastModified.After(g.newest.LastModified) {
			g.newest = v
		}
	}

	groups := make([]*versionGroup, 0, len(byHash))
	for _, g := range byHash {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].newest.LastModified.Equal(groups[j].newest.LastModified) {
			return groups[i].newest.LastModified.After(groups[j].newest.LastModified)
		}
		return groups[i].newest.Project < groups[j].newest.Project
	})
	return groups
}

// defaultStrategy is the safety net: it always matches and keeps the
// chain total.
type defaultStrategy struct{}

func (defaultStrategy) Matches(*GlobalFileState) bool { return true }

func (defaultStrategy) Resolve(*GlobalFileState, prompt.Prompter) (Decision, error) {
	return Decision{Action: DecisionUseNewest}, nil
}
