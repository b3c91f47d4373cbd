package postdom_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

func buildDiamond(t *testing.T) *cfgview.CFG {
	t.Helper()
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.TypeBool(4)
	b.ConstantTrue(5, 4)
	b.Function(1, 2)
	b.Label(10)
	b.BranchConditional(5, 11, 12)
	b.Label(11)
	b.Branch(13)
	b.Label(12)
	b.Branch(13)
	b.Label(13)
	b.Return()
	b.FunctionEnd()

	mod, err := ir.DecodeModule(b.Words())
	require.NoError(t, err)
	return cfgview.Build(mod.Functions[0])
}

func TestPostDomDiamond(t *testing.T) {
	cfg := buildDiamond(t)
	tree := postdom.Build(cfg)

	require.Equal(t, ir.ID(13), tree.Root())
	require.True(t, tree.StrictlyPostDominates(13, 10))
	require.True(t, tree.StrictlyPostDominates(13, 11))
	require.True(t, tree.StrictlyPostDominates(13, 12))
	require.False(t, tree.StrictlyPostDominates(11, 10))
	require.False(t, tree.StrictlyPostDominates(12, 10))
	require.False(t, tree.StrictlyPostDominates(11, 12))
	require.False(t, tree.StrictlyPostDominates(10, 10))
	require.Equal(t, ir.ID(13), tree.ImmediatePostDominator(10))
	require.Equal(t, ir.ID(13), tree.ImmediatePostDominator(11))
}

func TestPostDomMultiExit(t *testing.T) {
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.TypeBool(4)
	b.ConstantTrue(5, 4)
	b.Function(1, 2)
	b.Label(10)
	b.BranchConditional(5, 11, 12)
	b.Label(11)
	b.Return()
	b.Label(12)
	b.Kill()
	b.FunctionEnd()

	mod, err := ir.DecodeModule(b.Words())
	require.NoError(t, err)
	cfg := cfgview.Build(mod.Functions[0])
	tree := postdom.Build(cfg)

	require.True(t, cfg.IsPseudoExitBlock(tree.Root()))
	require.True(t, tree.StrictlyPostDominates(tree.Root(), 10))
	require.True(t, tree.StrictlyPostDominates(tree.Root(), 11))
	require.True(t, tree.StrictlyPostDominates(tree.Root(), 12))
	require.False(t, tree.StrictlyPostDominates(11, 10))
}
