package controldep_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

// buildAndAnalyze decodes words, builds the CFG and post-dominator tree
// for its sole function, and returns its control dependence graph.
func buildAndAnalyze(t *testing.T, words []uint32) *controldep.Graph {
	t.Helper()
	mod, err := ir.DecodeModule(words)
	require.NoError(t, err)
	require.Len(t, mod.Functions, 1)
	fn := mod.Functions[0]
	cfg := cfgview.Build(fn)
	pdt := postdom.Build(cfg)
	cdg, err := controldep.Build(cfg, pdt)
	require.NoError(t, err)
	return cdg
}

// gatherEdges collects every dependence edge in cdg, sorted by
// (source, target), and asserts the forward and reverse adjacency
// agree on the same edge set.
func gatherEdges(t *testing.T, cdg *controldep.Graph) []controldep.ControlDependence {
	t.Helper()
	var forward, reverse []controldep.ControlDependence
	cdg.ForEachBlockLabel(func(label ir.ID) {
		forward = append(forward, cdg.GetDependents(label)...)
		reverse = append(reverse, cdg.GetDependees(label)...)
	})
	sortEdges(forward)
	sortEdges(reverse)
	require.Equal(t, forward, reverse, "forward and reverse adjacency disagree")
	return forward
}

func sortEdges(edges []controldep.ControlDependence) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})
}

func entryDep(target ir.ID) controldep.ControlDependence {
	return controldep.ControlDependence{Source: ir.PseudoEntryBlock, Target: target, Kind: controldep.Entry}
}

func condDep(source, target, cond ir.ID, value bool) controldep.ControlDependence {
	return controldep.ControlDependence{
		Source: source, Target: target, Kind: controldep.ConditionalBranch,
		DependentValueLabel: cond, ConditionValue: value,
	}
}

func switchDep(source, target, selector ir.ID, isDefault bool, cases ...uint32) controldep.ControlDependence {
	return controldep.ControlDependence{
		Source: source, Target: target, Kind: controldep.SwitchCase,
		DependentValueLabel: selector, IsSwitchDefault: isDefault, SwitchCaseValues: cases,
	}
}

func requireSameEdges(t *testing.T, want, got []controldep.ControlDependence) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		require.Truef(t, want[i].Equal(got[i]), "edge %d: want %+v, got %+v", i, want[i], got[i])
	}
}

// TestDependenceSimpleCFG mirrors a switch/if/if control structure: a
// switch feeding two joined branches, the second of which contains a
// nested conditional.
func TestDependenceSimpleCFG(t *testing.T) {
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.TypeBool(4)
	b.TypeInt(5, 32, 0)
	b.Constant(6, 5, 0)
	b.ConstantTrue(8, 4)
	b.Function(1, 2)
	b.Label(10)
	b.Branch(11)
	b.Label(11)
	b.Switch(6, 12, ir.SwitchCase{Value: 1, Label: 13})
	b.Label(12)
	b.Branch(14)
	b.Label(13)
	b.Branch(14)
	b.Label(14)
	b.BranchConditional(8, 15, 16)
	b.Label(15)
	b.Branch(19)
	b.Label(16)
	b.BranchConditional(8, 17, 18)
	b.Label(17)
	b.Branch(18)
	b.Label(18)
	b.Branch(19)
	b.Label(19)
	b.Return()
	b.FunctionEnd()

	cdg := buildAndAnalyze(t, b.Words())

	require.True(t, cdg.IsDependent(12, 11))
	require.True(t, cdg.IsDependent(13, 11))
	require.True(t, cdg.IsDependent(15, 14))
	require.True(t, cdg.IsDependent(16, 14))
	require.True(t, cdg.IsDependent(18, 14))
	require.True(t, cdg.IsDependent(17, 16))
	require.True(t, cdg.IsDependent(10, 0))
	require.True(t, cdg.IsDependent(11, 0))
	require.True(t, cdg.IsDependent(14, 0))
	require.True(t, cdg.IsDependent(19, 0))
	require.False(t, cdg.IsDependent(14, 11))
	require.False(t, cdg.IsDependent(17, 14))
	require.False(t, cdg.IsDependent(19, 14))
	require.False(t, cdg.IsDependent(12, 0))

	want := []controldep.ControlDependence{
		entryDep(10), entryDep(11), entryDep(14), entryDep(19),
		switchDep(11, 12, 6, true),
		switchDep(11, 13, 6, false, 1),
		condDep(14, 15, 8, true),
		condDep(14, 16, 8, false),
		condDep(14, 18, 8, false),
		condDep(16, 17, 8, true),
	}
	sortEdges(want)
	requireSameEdges(t, want, gatherEdges(t, cdg))
}

// TestDependencePaperCFG reproduces the example CFG from Cytron et al.
// 1991, Figure 7, including its natural loop (blocks 9-11) and
// irreducible-looking back edge from block 12 to block 2.
func TestDependencePaperCFG(t *testing.T) {
	b := ir.NewBuilder()
	b.TypeVoid(102)
	b.TypeFunction(103, 102)
	b.TypeBool(104)
	b.ConstantTrue(108, 104)
	b.Function(101, 102)
	b.Label(1)
	b.Branch(2)
	b.Label(2)
	b.BranchConditional(108, 3, 7)
	b.Label(3)
	b.BranchConditional(108, 4, 5)
	b.Label(4)
	b.Branch(6)
	b.Label(5)
	b.Branch(6)
	b.Label(6)
	b.Branch(8)
	b.Label(7)
	b.Branch(8)
	b.Label(8)
	b.Branch(9)
	b.Label(9)
	b.BranchConditional(108, 10, 11)
	b.Label(10)
	b.Branch(11)
	b.Label(11)
	b.BranchConditional(108, 12, 9)
	b.Label(12)
	b.BranchConditional(108, 13, 2)
	b.Label(13)
	b.Return()
	b.FunctionEnd()

	cdg := buildAndAnalyze(t, b.Words())

	want := []controldep.ControlDependence{
		entryDep(1), entryDep(2), entryDep(8), entryDep(9), entryDep(11), entryDep(12), entryDep(13),
		condDep(2, 3, 108, true),
		condDep(2, 6, 108, true),
		condDep(2, 7, 108, false),
		condDep(3, 4, 108, true),
		condDep(3, 5, 108, false),
		condDep(9, 10, 108, true),
		condDep(11, 9, 108, false),
		condDep(11, 11, 108, false),
		condDep(12, 2, 108, false),
		condDep(12, 8, 108, false),
		condDep(12, 9, 108, false),
		condDep(12, 11, 108, false),
		condDep(12, 12, 108, false),
	}
	sortEdges(want)
	requireSameEdges(t, want, gatherEdges(t, cdg))
}
