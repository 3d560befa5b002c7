package pulsetest

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/haldor/pulse"
)

// MockNode is a hand-written gomock mock of pulse.Node, in the shape
// mockgen would emit for the interface in contract.go. Kept hand-written
// rather than generated since this module has no generate step wired to
// a checked-in mockgen invocation.
type MockNode struct {
	ctrl     *gomock.Controller
	recorder *MockNodeMockRecorder
}

type MockNodeMockRecorder struct {
	mock *MockNode
}

func NewMockNode(ctrl *gomock.Controller) *MockNode {
	m := &MockNode{ctrl: ctrl}
	m.recorder = &MockNodeMockRecorder{mock: m}
	return m
}

func (m *MockNode) EXPECT() *MockNodeMockRecorder {
	return m.recorder
}

func (m *MockNode) Tick(ctx context.Context, turn *pulse.Turn) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Tick", ctx, turn)
	ret0, _ := ret[0].(error)
	return ret0
}

func (mr *MockNodeMockRecorder) Tick(ctx, turn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Tick", reflect.TypeOf((*MockNode)(nil).Tick), ctx, turn)
}

func (m *MockNode) ApplyInput(ctx context.Context, turn *pulse.Turn) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ApplyInput", ctx, turn)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockNodeMockRecorder) ApplyInput(ctx, turn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ApplyInput", reflect.TypeOf((*MockNode)(nil).ApplyInput), ctx, turn)
}

func (m *MockNode) DependencyCount() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DependencyCount")
	ret0, _ := ret[0].(int)
	return ret0
}

func (mr *MockNodeMockRecorder) DependencyCount() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DependencyCount", reflect.TypeOf((*MockNode)(nil).DependencyCount))
}

func (m *MockNode) IsInputNode() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsInputNode")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockNodeMockRecorder) IsInputNode() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsInputNode", reflect.TypeOf((*MockNode)(nil).IsInputNode))
}

func (m *MockNode) IsDynamicNode() bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsDynamicNode")
	ret0, _ := ret[0].(bool)
	return ret0
}

func (mr *MockNodeMockRecorder) IsDynamicNode() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsDynamicNode", reflect.TypeOf((*MockNode)(nil).IsDynamicNode))
}
