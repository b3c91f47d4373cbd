package derivcheck_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/derivcheck"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

// buildDerivativeUnderBranch is the same fixture pkg/linter's
// integration test uses: a derivative inside a block reachable only
// through a branch on a non-uniform Input load.
func buildDerivativeUnderBranch(t *testing.T) *ir.Module {
	t.Helper()
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.TypeBool(4)
	b.TypePointer(5, ir.StorageClassInput, 4)
	b.Variable(6, 5, ir.StorageClassInput)

	b.Function(1, 2)
	b.Label(10)
	b.Load(7, 4, 6)
	b.BranchConditional(7, 11, 12)
	b.Label(11)
	b.Derivative(ir.OpDPdx, 30, 4, 7)
	b.Branch(12)
	b.Label(12)
	b.Return()
	b.FunctionEnd()

	mod, err := ir.DecodeModule(b.Words())
	require.NoError(t, err)
	return mod
}

func run(t *testing.T, mod *ir.Module, opts derivcheck.Options) *diag.Buffer {
	t.Helper()
	fn := mod.Functions[0]
	du := defuse.Build(mod)
	cfg := cfgview.Build(fn)
	pdt := postdom.Build(cfg)
	cdg, err := controldep.Build(cfg, pdt)
	require.NoError(t, err)

	state := divergence.Run(mod, fn, cfg, cdg, du, divergence.Options{})

	var buf diag.Buffer
	derivcheck.Check(fn, du, state, buf.Consume, opts)
	return &buf
}

func TestCheckFlagsDerivativeInDivergentBlock(t *testing.T) {
	mod := buildDerivativeUnderBranch(t)
	buf := run(t, mod, derivcheck.Options{})

	require.NotEmpty(t, buf.Messages)
	require.Contains(t, buf.Messages[0].Text, "derivative with non-uniform control flow located in block")

	var sawBranchCause bool
	for _, m := range buf.Messages {
		if strings.Contains(m.Text, "depends on conditional branch on non-uniform value") {
			sawBranchCause = true
		}
	}
	require.True(t, sawBranchCause, "expected the flow to explain the branch cause, got: %+v", buf.Messages)
}

func TestCheckReportsNothingWhenBlockUniform(t *testing.T) {
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.TypeBool(4)
	b.Function(1, 2)
	b.Label(10)
	b.Derivative(ir.OpDPdx, 30, 4, 4)
	b.Return()
	b.FunctionEnd()

	mod, err := ir.DecodeModule(b.Words())
	require.NoError(t, err)

	buf := run(t, mod, derivcheck.Options{})
	require.Empty(t, buf.Messages)
}

func TestCheckFriendlyNamesOption(t *testing.T) {
	mod := buildDerivativeUnderBranch(t)

	plain := run(t, mod, derivcheck.Options{FriendlyNames: false})
	friendly := run(t, mod, derivcheck.Options{FriendlyNames: true})

	require.NotEmpty(t, plain.Messages)
	require.NotEmpty(t, friendly.Messages)
	require.Contains(t, friendly.Messages[0].Text, "%bool")
	require.NotContains(t, plain.Messages[0].Text, "%bool")
}
