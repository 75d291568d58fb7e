// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rootlog

import (
	reflect "reflect"

	common "github.com/Fantom-foundation/accountsdb/common"
	gomock "go.uber.org/mock/gomock"
)

// MockLog is a mock of Log interface.
type MockLog struct {
	ctrl     *gomock.Controller
	recorder *MockLogMockRecorder
}

// MockLogMockRecorder is the mock recorder for MockLog.
type MockLogMockRecorder struct {
	mock *MockLog
}

// NewMockLog creates a new mock instance.
func NewMockLog(ctrl *gomock.Controller) *MockLog {
	mock := &MockLog{ctrl: ctrl}
	mock.recorder = &MockLogMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLog) EXPECT() *MockLogMockRecorder {
	return m.recorder
}

// AddRoot mocks base method.
func (m *MockLog) AddRoot(slot common.Slot) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddRoot", slot)
	ret0, _ := ret[0].(error)
	return ret0
}

// AddRoot indicates an expected call of AddRoot.
func (mr *MockLogMockRecorder) AddRoot(slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddRoot", reflect.TypeOf((*MockLog)(nil).AddRoot), slot)
}

// Close mocks base method.
func (m *MockLog) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockLogMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockLog)(nil).Close))
}

// Flush mocks base method.
func (m *MockLog) Flush() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Flush")
	ret0, _ := ret[0].(error)
	return ret0
}

// Flush indicates an expected call of Flush.
func (mr *MockLogMockRecorder) Flush() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Flush", reflect.TypeOf((*MockLog)(nil).Flush))
}

// GetDeltaHash mocks base method.
func (m *MockLog) GetDeltaHash(slot common.Slot) (common.Hash, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetDeltaHash", slot)
	ret0, _ := ret[0].(common.Hash)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// GetDeltaHash indicates an expected call of GetDeltaHash.
func (mr *MockLogMockRecorder) GetDeltaHash(slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetDeltaHash", reflect.TypeOf((*MockLog)(nil).GetDeltaHash), slot)
}

// GetFullHash mocks base method.
func (m *MockLog) GetFullHash(slot common.Slot) (FullHash, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetFullHash", slot)
	ret0, _ := ret[0].(FullHash)
	ret1, _ := ret[1].(bool)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// GetFullHash indicates an expected call of GetFullHash.
func (mr *MockLogMockRecorder) GetFullHash(slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetFullHash", reflect.TypeOf((*MockLog)(nil).GetFullHash), slot)
}

// LastFullHash mocks base method.
func (m *MockLog) LastFullHash() (common.Slot, FullHash, bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LastFullHash")
	ret0, _ := ret[0].(common.Slot)
	ret1, _ := ret[1].(FullHash)
	ret2, _ := ret[2].(bool)
	ret3, _ := ret[3].(error)
	return ret0, ret1, ret2, ret3
}

// LastFullHash indicates an expected call of LastFullHash.
func (mr *MockLogMockRecorder) LastFullHash() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LastFullHash", reflect.TypeOf((*MockLog)(nil).LastFullHash))
}

// Roots mocks base method.
func (m *MockLog) Roots() ([]common.Slot, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Roots")
	ret0, _ := ret[0].([]common.Slot)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Roots indicates an expected call of Roots.
func (mr *MockLogMockRecorder) Roots() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Roots", reflect.TypeOf((*MockLog)(nil).Roots))
}

// SetDeltaHash mocks base method.
func (m *MockLog) SetDeltaHash(slot common.Slot, hash common.Hash) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetDeltaHash", slot, hash)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetDeltaHash indicates an expected call of SetDeltaHash.
func (mr *MockLogMockRecorder) SetDeltaHash(slot, hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetDeltaHash", reflect.TypeOf((*MockLog)(nil).SetDeltaHash), slot, hash)
}

// SetFullHash mocks base method.
func (m *MockLog) SetFullHash(slot common.Slot, hash FullHash) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetFullHash", slot, hash)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetFullHash indicates an expected call of SetFullHash.
func (mr *MockLogMockRecorder) SetFullHash(slot, hash any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetFullHash", reflect.TypeOf((*MockLog)(nil).SetFullHash), slot, hash)
}
