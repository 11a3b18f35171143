package block

// Hand-written in the shape mockgen would produce for the Device interface
// (mockgen -source=block.go -destination=mock_device_test.go), since the
// toolchain isn't run as part of building this tree.

import (
	"reflect"

	"github.com/Jithub-4pf/NanOS/kernel"
	"go.uber.org/mock/gomock"
)

// MockDevice is a mock of the Device interface.
type MockDevice struct {
	ctrl     *gomock.Controller
	recorder *MockDeviceMockRecorder
}

type MockDeviceMockRecorder struct {
	mock *MockDevice
}

func NewMockDevice(ctrl *gomock.Controller) *MockDevice {
	m := &MockDevice{ctrl: ctrl}
	m.recorder = &MockDeviceMockRecorder{m}
	return m
}

func (m *MockDevice) EXPECT() *MockDeviceMockRecorder {
	return m.recorder
}

func (m *MockDevice) ReadSectors(firstSector, count uint32, out []byte) *kernel.Error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReadSectors", firstSector, count, out)
	ret0, _ := ret[0].(*kernel.Error)
	return ret0
}

func (mr *MockDeviceMockRecorder) ReadSectors(firstSector, count, out interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReadSectors", reflect.TypeOf((*MockDevice)(nil).ReadSectors), firstSector, count, out)
}

func (m *MockDevice) WriteSectors(firstSector, count uint32, in []byte) *kernel.Error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WriteSectors", firstSector, count, in)
	ret0, _ := ret[0].(*kernel.Error)
	return ret0
}

func (mr *MockDeviceMockRecorder) WriteSectors(firstSector, count, in interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "WriteSectors", reflect.TypeOf((*MockDevice)(nil).WriteSectors), firstSector, count, in)
}

func (m *MockDevice) SectorCount() uint32 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SectorCount")
	ret0, _ := ret[0].(uint32)
	return ret0
}

func (mr *MockDeviceMockRecorder) SectorCount() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SectorCount", reflect.TypeOf((*MockDevice)(nil).SectorCount))
}

func (m *MockDevice) SectorSize() uint32 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SectorSize")
	ret0, _ := ret[0].(uint32)
	return ret0
}

func (mr *MockDeviceMockRecorder) SectorSize() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SectorSize", reflect.TypeOf((*MockDevice)(nil).SectorSize))
}
