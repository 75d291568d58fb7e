// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cleaner

import (
	reflect "reflect"

	index "github.com/Fantom-foundation/accountsdb/backend/index"
	common "github.com/Fantom-foundation/accountsdb/common"
	roaring "github.com/RoaringBitmap/roaring"
	gomock "go.uber.org/mock/gomock"
)

// MockRoots is a mock of Roots interface.
type MockRoots struct {
	ctrl     *gomock.Controller
	recorder *MockRootsMockRecorder
}

// MockRootsMockRecorder is the mock recorder for MockRoots.
type MockRootsMockRecorder struct {
	mock *MockRoots
}

// NewMockRoots creates a new mock instance.
func NewMockRoots(ctrl *gomock.Controller) *MockRoots {
	mock := &MockRoots{ctrl: ctrl}
	mock.recorder = &MockRootsMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRoots) EXPECT() *MockRootsMockRecorder {
	return m.recorder
}

// IsRooted mocks base method.
func (m *MockRoots) IsRooted(slot common.Slot) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsRooted", slot)
	ret0, _ := ret[0].(bool)
	return ret0
}

// IsRooted indicates an expected call of IsRooted.
func (mr *MockRootsMockRecorder) IsRooted(slot any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsRooted", reflect.TypeOf((*MockRoots)(nil).IsRooted), slot)
}

// MockStorage is a mock of Storage interface.
type MockStorage struct {
	ctrl     *gomock.Controller
	recorder *MockStorageMockRecorder
}

// MockStorageMockRecorder is the mock recorder for MockStorage.
type MockStorageMockRecorder struct {
	mock *MockStorage
}

// NewMockStorage creates a new mock instance.
func NewMockStorage(ctrl *gomock.Controller) *MockStorage {
	mock := &MockStorage{ctrl: ctrl}
	mock.recorder = &MockStorageMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockStorage) EXPECT() *MockStorageMockRecorder {
	return m.recorder
}

// CopyForward mocks base method.
func (m *MockStorage) CopyForward(entries []index.KeyedEntry) ([]common.AccountInfo, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CopyForward", entries)
	ret0, _ := ret[0].([]common.AccountInfo)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CopyForward indicates an expected call of CopyForward.
func (mr *MockStorageMockRecorder) CopyForward(entries any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CopyForward", reflect.TypeOf((*MockStorage)(nil).CopyForward), entries)
}

// Free mocks base method.
func (m *MockStorage) Free(removed []index.KeyedEntry) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Free", removed)
	ret0, _ := ret[0].(error)
	return ret0
}

// Free indicates an expected call of Free.
func (mr *MockStorageMockRecorder) Free(removed any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Free", reflect.TypeOf((*MockStorage)(nil).Free), removed)
}

// Retain mocks base method.
func (m *MockStorage) Retain(purged []index.KeyedEntry) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Retain", purged)
	ret0, _ := ret[0].(error)
	return ret0
}

// Retain indicates an expected call of Retain.
func (mr *MockStorageMockRecorder) Retain(purged any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Retain", reflect.TypeOf((*MockStorage)(nil).Retain), purged)
}

// Recycle mocks base method.
func (m *MockStorage) Recycle(segments *roaring.Bitmap) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Recycle", segments)
	ret0, _ := ret[0].(error)
	return ret0
}

// Recycle indicates an expected call of Recycle.
func (mr *MockStorageMockRecorder) Recycle(segments any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Recycle", reflect.TypeOf((*MockStorage)(nil).Recycle), segments)
}

// ShrinkCandidates mocks base method.
func (m *MockStorage) ShrinkCandidates(ratio float64) *roaring.Bitmap {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ShrinkCandidates", ratio)
	ret0, _ := ret[0].(*roaring.Bitmap)
	return ret0
}

// ShrinkCandidates indicates an expected call of ShrinkCandidates.
func (mr *MockStorageMockRecorder) ShrinkCandidates(ratio any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ShrinkCandidates", reflect.TypeOf((*MockStorage)(nil).ShrinkCandidates), ratio)
}
