package linter_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/linter"
)

// buildDerivativeUnderBranch assembles a function that takes a
// derivative inside a block reachable only through a branch on a
// non-uniform (Input, non-Flat) value.
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

func TestRunModuleReportsDerivativeUnderNonUniformBranch(t *testing.T) {
	mod := buildDerivativeUnderBranch(t)

	l := linter.New()
	var buf diag.Buffer
	l.SetMessageConsumer(buf.Consume)

	ok := l.RunModule(mod)
	require.True(t, ok)
	require.False(t, buf.HasErrors())
	require.NotEmpty(t, buf.Messages)

	found := false
	for _, m := range buf.Messages {
		if strings.Contains(m.Text, "derivative with non-uniform control flow") {
			found = true
		}
	}
	require.True(t, found, "expected a derivative diagnostic, got: %+v", buf.Messages)
}

func TestRunModuleCleanFunctionReportsNothing(t *testing.T) {
	b := ir.NewBuilder()
	b.TypeVoid(2)
	b.TypeFunction(3, 2)
	b.Function(1, 2)
	b.Label(10)
	b.Return()
	b.FunctionEnd()

	mod, err := ir.DecodeModule(b.Words())
	require.NoError(t, err)

	l := linter.New()
	var buf diag.Buffer
	l.SetMessageConsumer(buf.Consume)

	require.True(t, l.RunModule(mod))
	require.Empty(t, buf.Messages)
}
