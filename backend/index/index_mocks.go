// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package index

import (
	reflect "reflect"

	context "context"
	common "github.com/Fantom-foundation/accountsdb/common"
	gomock "go.uber.org/mock/gomock"
)

// MockIndex is a mock of Index interface.
type MockIndex struct {
	ctrl     *gomock.Controller
	recorder *MockIndexMockRecorder
}

// MockIndexMockRecorder is the mock recorder for MockIndex.
type MockIndexMockRecorder struct {
	mock *MockIndex
}

// NewMockIndex creates a new mock instance.
func NewMockIndex(ctrl *gomock.Controller) *MockIndex {
	mock := &MockIndex{ctrl: ctrl}
	mock.recorder = &MockIndexMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIndex) EXPECT() *MockIndexMockRecorder {
	return m.recorder
}

// ForEachShard mocks base method.
func (m *MockIndex) ForEachShard(ctx context.Context, workers int, visit func(int, common.Key, []Entry) error) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ForEachShard", ctx, workers, visit)
	ret0, _ := ret[0].(error)
	return ret0
}

// ForEachShard indicates an expected call of ForEachShard.
func (mr *MockIndexMockRecorder) ForEachShard(ctx, workers, visit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ForEachShard", reflect.TypeOf((*MockIndex)(nil).ForEachShard), ctx, workers, visit)
}

// Get mocks base method.
func (m *MockIndex) Get(key common.Key, slot common.Slot) (common.AccountInfo, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", key, slot)
	ret0, _ := ret[0].(common.AccountInfo)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Get indicates an expected call of Get.
func (mr *MockIndexMockRecorder) Get(key, slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockIndex)(nil).Get), key, slot)
}

// GetAll mocks base method.
func (m *MockIndex) GetAll(key common.Key) []Entry {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetAll", key)
	ret0, _ := ret[0].([]Entry)
	return ret0
}

// GetAll indicates an expected call of GetAll.
func (mr *MockIndexMockRecorder) GetAll(key any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetAll", reflect.TypeOf((*MockIndex)(nil).GetAll), key)
}

// GetMemoryFootprint mocks base method.
func (m *MockIndex) GetMemoryFootprint() *common.MemoryFootprint {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetMemoryFootprint")
	ret0, _ := ret[0].(*common.MemoryFootprint)
	return ret0
}

// GetMemoryFootprint indicates an expected call of GetMemoryFootprint.
func (mr *MockIndexMockRecorder) GetMemoryFootprint() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetMemoryFootprint", reflect.TypeOf((*MockIndex)(nil).GetMemoryFootprint))
}

// Len mocks base method.
func (m *MockIndex) Len() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Len")
	ret0, _ := ret[0].(int)
	return ret0
}

// Len indicates an expected call of Len.
func (mr *MockIndexMockRecorder) Len() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Len", reflect.TypeOf((*MockIndex)(nil).Len))
}

// NumKeys mocks base method.
func (m *MockIndex) NumKeys() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NumKeys")
	ret0, _ := ret[0].(int)
	return ret0
}

// NumKeys indicates an expected call of NumKeys.
func (mr *MockIndexMockRecorder) NumKeys() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NumKeys", reflect.TypeOf((*MockIndex)(nil).NumKeys))
}

// NumShards mocks base method.
func (m *MockIndex) NumShards() int {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NumShards")
	ret0, _ := ret[0].(int)
	return ret0
}

// NumShards indicates an expected call of NumShards.
func (mr *MockIndexMockRecorder) NumShards() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NumShards", reflect.TypeOf((*MockIndex)(nil).NumShards))
}

// Relocate mocks base method.
func (m *MockIndex) Relocate(key common.Key, slot common.Slot, expected common.StorageLocation, info common.AccountInfo) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Relocate", key, slot, expected, info)
	ret0, _ := ret[0].(bool)
	return ret0
}

// Relocate indicates an expected call of Relocate.
func (mr *MockIndexMockRecorder) Relocate(key, slot, expected, info any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Relocate", reflect.TypeOf((*MockIndex)(nil).Relocate), key, slot, expected, info)
}

// Remove mocks base method.
func (m *MockIndex) Remove(key common.Key, slot common.Slot) (common.AccountInfo, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Remove", key, slot)
	ret0, _ := ret[0].(common.AccountInfo)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Remove indicates an expected call of Remove.
func (mr *MockIndexMockRecorder) Remove(key, slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Remove", reflect.TypeOf((*MockIndex)(nil).Remove), key, slot)
}

// Scan mocks base method.
func (m *MockIndex) Scan(filter func(common.Key, Entry) bool) common.Iterator[KeyedEntry] {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Scan", filter)
	ret0, _ := ret[0].(common.Iterator[KeyedEntry])
	return ret0
}

// Scan indicates an expected call of Scan.
func (mr *MockIndexMockRecorder) Scan(filter any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Scan", reflect.TypeOf((*MockIndex)(nil).Scan), filter)
}

// Upsert mocks base method.
func (m *MockIndex) Upsert(key common.Key, slot common.Slot, info common.AccountInfo) (common.AccountInfo, bool) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Upsert", key, slot, info)
	ret0, _ := ret[0].(common.AccountInfo)
	ret1, _ := ret[1].(bool)
	return ret0, ret1
}

// Upsert indicates an expected call of Upsert.
func (mr *MockIndexMockRecorder) Upsert(key, slot, info any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Upsert", reflect.TypeOf((*MockIndex)(nil).Upsert), key, slot, info)
}
