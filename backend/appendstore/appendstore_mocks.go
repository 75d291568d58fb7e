// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package appendstore

import (
	reflect "reflect"

	common "github.com/Fantom-foundation/accountsdb/common"
	gomock "go.uber.org/mock/gomock"
)

// MockAppendStore is a mock of AppendStore interface.
type MockAppendStore struct {
	ctrl     *gomock.Controller
	recorder *MockAppendStoreMockRecorder
}

// MockAppendStoreMockRecorder is the mock recorder for MockAppendStore.
type MockAppendStoreMockRecorder struct {
	mock *MockAppendStore
}

// NewMockAppendStore creates a new mock instance.
func NewMockAppendStore(ctrl *gomock.Controller) *MockAppendStore {
	mock := &MockAppendStore{ctrl: ctrl}
	mock.recorder = &MockAppendStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAppendStore) EXPECT() *MockAppendStoreMockRecorder {
	return m.recorder
}

// Append mocks base method.
func (m *MockAppendStore) Append(slot common.Slot, accounts []StorableAccount) ([]uint64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Append", slot, accounts)
	ret0, _ := ret[0].([]uint64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Append indicates an expected call of Append.
func (mr *MockAppendStoreMockRecorder) Append(slot, accounts any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Append", reflect.TypeOf((*MockAppendStore)(nil).Append), slot, accounts)
}

// Capacity mocks base method.
func (m *MockAppendStore) Capacity() uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Capacity")
	ret0, _ := ret[0].(uint64)
	return ret0
}

// Capacity indicates an expected call of Capacity.
func (mr *MockAppendStoreMockRecorder) Capacity() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Capacity", reflect.TypeOf((*MockAppendStore)(nil).Capacity))
}

// Close mocks base method.
func (m *MockAppendStore) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockAppendStoreMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockAppendStore)(nil).Close))
}

// Flush mocks base method.
func (m *MockAppendStore) Flush() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Flush")
	ret0, _ := ret[0].(error)
	return ret0
}

// Flush indicates an expected call of Flush.
func (mr *MockAppendStoreMockRecorder) Flush() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Flush", reflect.TypeOf((*MockAppendStore)(nil).Flush))
}

// GetMemoryFootprint mocks base method.
func (m *MockAppendStore) GetMemoryFootprint() *common.MemoryFootprint {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetMemoryFootprint")
	ret0, _ := ret[0].(*common.MemoryFootprint)
	return ret0
}

// GetMemoryFootprint indicates an expected call of GetMemoryFootprint.
func (mr *MockAppendStoreMockRecorder) GetMemoryFootprint() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetMemoryFootprint", reflect.TypeOf((*MockAppendStore)(nil).GetMemoryFootprint))
}

// Len mocks base method.
func (m *MockAppendStore) Len() uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Len")
	ret0, _ := ret[0].(uint64)
	return ret0
}

// Len indicates an expected call of Len.
func (mr *MockAppendStoreMockRecorder) Len() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Len", reflect.TypeOf((*MockAppendStore)(nil).Len))
}

// Read mocks base method.
func (m *MockAppendStore) Read(offset uint64, visit func(StoredAccount) error) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Read", offset, visit)
	ret0, _ := ret[0].(error)
	return ret0
}

// Read indicates an expected call of Read.
func (mr *MockAppendStoreMockRecorder) Read(offset, visit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Read", reflect.TypeOf((*MockAppendStore)(nil).Read), offset, visit)
}

// Remaining mocks base method.
func (m *MockAppendStore) Remaining() uint64 {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Remaining")
	ret0, _ := ret[0].(uint64)
	return ret0
}

// Remaining indicates an expected call of Remaining.
func (mr *MockAppendStoreMockRecorder) Remaining() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Remaining", reflect.TypeOf((*MockAppendStore)(nil).Remaining))
}

// Reset mocks base method.
func (m *MockAppendStore) Reset() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Reset")
	ret0, _ := ret[0].(error)
	return ret0
}

// Reset indicates an expected call of Reset.
func (mr *MockAppendStoreMockRecorder) Reset() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reset", reflect.TypeOf((*MockAppendStore)(nil).Reset))
}

// Scan mocks base method.
func (m *MockAppendStore) Scan(visit func(uint64, StoredAccount) error) (ScanResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Scan", visit)
	ret0, _ := ret[0].(ScanResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Scan indicates an expected call of Scan.
func (mr *MockAppendStoreMockRecorder) Scan(visit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Scan", reflect.TypeOf((*MockAppendStore)(nil).Scan), visit)
}
