package pulse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldor/pulse"
	"github.com/haldor/pulse/pulsetest"
)

func TestEngine_FlattenReattachesToSelectedSource(t *testing.T) {
	e := pulse.NewEngine()
	ctx := context.Background()

	selector := pulsetest.NewInputCell(-1)
	vselector := e.NewVertex(selector)

	srcA := pulsetest.NewInputCell(100)
	vsrcA := e.NewVertex(srcA)

	srcB := pulsetest.NewInputCell(200)
	vsrcB := e.NewVertex(srcB)

	flatten := pulsetest.NewFlattenCell(selector,
		[]pulsetest.Valuer{srcA, srcB},
		[]*pulse.Vertex{vsrcA, vsrcB})
	vflatten := e.NewVertex(flatten)
	flatten.Bind(e, vflatten)
	e.Attach(vflatten, vselector)

	selector.SetNext(0)
	turn1 := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.Propagate(ctx, turn1, []*pulse.Vertex{vselector}))
	assert.Equal(t, 100, flatten.Value())

	selector.SetNext(1)
	turn2 := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.Propagate(ctx, turn2, []*pulse.Vertex{vselector}))
	assert.Equal(t, 200, flatten.Value(), "reattaching to srcB must pick up its value the same turn")

	srcA.SetNext(999)
	turn3 := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.Propagate(ctx, turn3, []*pulse.Vertex{vsrcA}))
	assert.Equal(t, 200, flatten.Value(), "detached source must no longer reach the flatten cell")
}

// TestEngine_FlattenShortCircuitsOnLevelIncrease covers the case the
// simple reattach test above cannot: a reattachment whose new parent
// sits at a higher level than the flatten vertex's old predecessor set,
// forcing the vertex's own level to rise mid-turn. The first Tick this
// turn must short-circuit (no pulse, no idle-pulse) and the engine must
// re-run it once its new predecessor has settled.
func TestEngine_FlattenShortCircuitsOnLevelIncrease(t *testing.T) {
	e := pulse.NewEngine()
	ctx := context.Background()

	selector := pulsetest.NewInputCell(-1)
	vselector := e.NewVertex(selector)

	rawA := pulsetest.NewInputCell(-1)
	vrawA := e.NewVertex(rawA)
	srcA := pulsetest.NewComputedCell(func(deps []int) int { return deps[0] * 2 }, rawA)
	vsrcA := e.NewVertex(srcA)
	srcA.Bind(e, vsrcA)
	e.Attach(vsrcA, vrawA) // vsrcA settles at level 1, one level above selector

	// Prime srcA with a real computed value before flatten ever reads it;
	// a vertex's value is whatever its last Tick produced, and srcA has
	// had none yet.
	rawA.SetNext(10)
	primingTurn := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.Propagate(ctx, primingTurn, []*pulse.Vertex{vrawA}))
	require.Equal(t, 20, srcA.Value())

	flatten := pulsetest.NewFlattenCell(selector, []pulsetest.Valuer{srcA}, []*pulse.Vertex{vsrcA})
	vflatten := e.NewVertex(flatten)
	flatten.Bind(e, vflatten)
	e.Attach(vflatten, vselector)
	require.Equal(t, int32(1), vflatten.Level(), "flatten starts at selector's level + 1")

	selector.SetNext(0)
	turn := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.Propagate(ctx, turn, []*pulse.Vertex{vselector}))

	assert.Equal(t, int32(2), vflatten.Level(), "reattaching to a level-1 source must raise flatten to level 2")
	assert.Equal(t, 20, flatten.Value(), "the engine must re-run flatten after the level-raising reattachment")
}

// TestEngine_OnDynamicNodeDetach exercises the detach hook directly: a
// dynamic node dropping a child with no replacement parent this turn.
func TestEngine_OnDynamicNodeDetach(t *testing.T) {
	e := pulse.NewEngine()

	parent := pulsetest.NewInputCell(0)
	vparent := e.NewVertex(parent)

	vdynamic := e.NewVertex(dynamicStub{})

	e.Attach(vdynamic, vparent)
	require.Contains(t, vparent.Successors(), vdynamic)
	require.Contains(t, vdynamic.Predecessors(), vparent)

	turn := e.BeginTurn(pulse.TurnNone)
	require.NoError(t, e.OnDynamicNodeDetach(context.Background(), vdynamic, vdynamic, vparent, turn))

	assert.NotContains(t, vparent.Successors(), vdynamic)
	assert.NotContains(t, vdynamic.Predecessors(), vparent)
}

// dynamicStub is the minimal Node needed to pass OnDynamicNodeDetach's
// IsDynamicNode guard; the test drives the engine hook directly rather
// than through a Tick call, so Tick/ApplyInput are never invoked.
type dynamicStub struct{}

func (dynamicStub) Tick(ctx context.Context, turn *pulse.Turn) error { panic("not called") }
func (dynamicStub) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	panic("not called")
}
func (dynamicStub) DependencyCount() int { return 1 }
func (dynamicStub) IsInputNode() bool    { return false }
func (dynamicStub) IsDynamicNode() bool  { return true }
