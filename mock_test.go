package pulse_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/haldor/pulse"
	"github.com/haldor/pulse/pulsetest"
)

// TestEngine_TicksMockedNodeExactlyOnce exercises pulsetest.MockNode to
// assert a marked, non-repeated vertex's Tick runs exactly once per
// turn, without a live recompute function backing it.
func TestEngine_TicksMockedNodeExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)

	e := pulse.NewEngine()
	ctx := context.Background()

	in := pulsetest.NewInputCell(0)
	vin := e.NewVertex(in)

	mockNode := pulsetest.NewMockNode(ctrl)
	mockNode.EXPECT().DependencyCount().Return(1)
	vmock := e.NewVertex(mockNode)
	e.Attach(vmock, vin)

	in.SetNext(1)
	turn := e.BeginTurn(pulse.TurnNone)

	mockNode.EXPECT().
		Tick(gomock.Any(), gomock.Eq(turn)).
		Times(1).
		DoAndReturn(func(ctx context.Context, turn *pulse.Turn) error {
			e.OnNodePulse(vmock, turn)
			return nil
		})

	require.NoError(t, e.Propagate(ctx, turn, []*pulse.Vertex{vin}))
}
