package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jercik/sync-rules-sub001/internal/prompt"
)

func resolve(t *testing.T, state *GlobalFileState, answers ...string) (Decision, *prompt.Script) {
	t.Helper()
	script := &prompt.Script{Answers: answers}
	d, err := ResolveDecision(state, DefaultChain(), script)
	require.NoError(t, err)
	return d, script
}

func TestDecision_SingleProjectStrategy(t *testing.T) {
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h1", t1)),
		projectScan("p2"),
	})
	state := states["rules.md"]

	cases := []struct {
		name     string
		answers  []string
		expected DecisionAction
	}{
		{"copy to missing", []string{"newest"}, DecisionUseNewest},
		{"delete confirmed", []string{"delete", "y"}, DecisionDeleteAll},
		{"delete declined downgrades to skip", []string{"delete", "n"}, DecisionSkip},
		{"skip", []string{"skip"}, DecisionSkip},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, script := resolve(t, state, c.answers...)
			assert.Equal(t, c.expected, d.Action)
			assert.NotEmpty(t, script.Selections)
		})
	}
}

func TestDecision_IdenticalWithMissingStrategy(t *testing.T) {
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h", t0)),
		projectScan("p2", testFile("rules.md", "h", t1)),
		projectScan("p3"),
	})

	d, _ := resolve(t, states["rules.md"], "newest")
	assert.Equal(t, DecisionUseNewest, d.Action)
}

func TestDecision_DifferentVersionsOffersGroups(t *testing.T) {
	// p1 and p3 share a hash, p2 differs and is newest
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "shared", t0)),
		projectScan("p2", testFile("rules.md", "other", t2)),
		projectScan("p3", testFile("rules.md", "shared", t1)),
	})
	state := states["rules.md"]

	groups := groupVersionsByHash(state)
	require.Len(t, groups, 2)
	// newest group first; shared group is represented by its most
	// recently modified member
	assert.Equal(t, "p2", groups[0].newest.Project)
	assert.Equal(t, "p3", groups[1].newest.Project)
	assert.Len(t, groups[1].members, 2)

	d, _ := resolve(t, state, "use:p3")
	assert.Equal(t, DecisionUseSpecific, d.Action)
	assert.Equal(t, "p3", d.SourceProject)
}

func TestDecision_HashlessVersionsFormOwnGroups(t *testing.T) {
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "", t0)),
		projectScan("p2", testFile("rules.md", "", t1)),
	})

	groups := groupVersionsByHash(states["rules.md"])
	assert.Len(t, groups, 2)
}

func TestDecision_DefaultStrategyNeedsNoPrompt(t *testing.T) {
	// single version, nothing missing: only the fallback matches
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h", t0)),
	})
	state := states["rules.md"]

	script := &prompt.Script{}
	d, err := ResolveDecision(state, DefaultChain(), script)
	require.NoError(t, err)
	assert.Equal(t, DecisionUseNewest, d.Action)
	assert.Empty(t, script.Selections)
}

func TestDecision_ChainOrderFirstMatchWins(t *testing.T) {
	// identical-with-missing must be resolved by strategy 2, which
	// offers add/delete/skip, never the per-group use:<project> options
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h", t0)),
		projectScan("p2", testFile("rules.md", "h", t1)),
		projectScan("p3"),
	})

	script := &prompt.Script{Answers: []string{"use:p1"}}
	_, err := ResolveDecision(states["rules.md"], DefaultChain(), script)
	// strategy 2 never offers use:<project>, so the scripted answer is rejected
	assert.Error(t, err)
}

func TestDecision_EmptyChainIsInvariantViolation(t *testing.T) {
	states := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h", t0)),
	})
	_, err := ResolveDecision(states["rules.md"], nil, &prompt.Script{})
	assert.ErrorIs(t, err, ErrNoStrategy)
}

func TestResolveAuto(t *testing.T) {
	identical := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h", t0)),
		projectScan("p2", testFile("rules.md", "h", t1)),
	})["rules.md"]
	assert.Equal(t, DecisionSkip, ResolveAuto(identical).Action)

	differing := BuildGlobalStates([]ProjectScan{
		projectScan("p1", testFile("rules.md", "h1", t0)),
		projectScan("p2", testFile("rules.md", "h2", t1)),
	})["rules.md"]
	assert.Equal(t, DecisionUseNewest, ResolveAuto(differing).Action)
}
