package dump_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l3aro/divergence-lint/pkg/cfgview"
	"github.com/l3aro/divergence-lint/pkg/controldep"
	"github.com/l3aro/divergence-lint/pkg/defuse"
	"github.com/l3aro/divergence-lint/pkg/divergence"
	"github.com/l3aro/divergence-lint/pkg/dump"
	"github.com/l3aro/divergence-lint/pkg/ir"
	"github.com/l3aro/divergence-lint/pkg/postdom"
)

func buildDiamond(t *testing.T) *ir.Module {
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
	return mod
}

func TestControlDependenceGraphJSON(t *testing.T) {
	mod := buildDiamond(t)
	fn := mod.Functions[0]
	cfg := cfgview.Build(fn)
	pdt := postdom.Build(cfg)
	cdg, err := controldep.Build(cfg, pdt)
	require.NoError(t, err)

	var blocks []ir.ID
	cfg.ForEachBlockInReversePostOrder(fn.Entry().ID, func(id ir.ID) { blocks = append(blocks, id) })

	edges := dump.ControlDependenceGraph(cdg, blocks)
	require.NotEmpty(t, edges)

	var buf bytes.Buffer
	require.NoError(t, dump.Write(&buf, dump.FormatJSON, edges))

	var roundTripped []dump.ControlDependenceEdge
	require.NoError(t, json.Unmarshal(buf.Bytes(), &roundTripped))
	require.Equal(t, len(edges), len(roundTripped))
}

func TestDivergenceReportMsgpack(t *testing.T) {
	mod := buildDiamond(t)
	fn := mod.Functions[0]
	cfg := cfgview.Build(fn)
	pdt := postdom.Build(cfg)
	cdg, err := controldep.Build(cfg, pdt)
	require.NoError(t, err)
	du := defuse.Build(mod)
	state := divergence.Run(mod, fn, cfg, cdg, du, divergence.Options{})

	report := dump.DivergenceReport(fn, state)

	var buf bytes.Buffer
	require.NoError(t, dump.Write(&buf, dump.FormatMsgpack, report))
	require.NotEmpty(t, buf.Bytes())
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := dump.Write(&buf, dump.Format("xml"), struct{}{})
	require.Error(t, err)
}
