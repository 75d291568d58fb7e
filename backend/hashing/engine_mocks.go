// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package hashing

import (
	reflect "reflect"

	common "github.com/Fantom-foundation/accountsdb/common"
	gomock "go.uber.org/mock/gomock"
)

// MockRecordSource is a mock of RecordSource interface.
type MockRecordSource struct {
	ctrl     *gomock.Controller
	recorder *MockRecordSourceMockRecorder
}

// MockRecordSourceMockRecorder is the mock recorder for MockRecordSource.
type MockRecordSourceMockRecorder struct {
	mock *MockRecordSource
}

// NewMockRecordSource creates a new mock instance.
func NewMockRecordSource(ctrl *gomock.Controller) *MockRecordSource {
	mock := &MockRecordSource{ctrl: ctrl}
	mock.recorder = &MockRecordSourceMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRecordSource) EXPECT() *MockRecordSourceMockRecorder {
	return m.recorder
}

// LoadStored mocks base method.
func (m *MockRecordSource) LoadStored(key common.Key, info common.AccountInfo) (common.Account, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadStored", key, info)
	ret0, _ := ret[0].(common.Account)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// LoadStored indicates an expected call of LoadStored.
func (mr *MockRecordSourceMockRecorder) LoadStored(key, info any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LoadStored", reflect.TypeOf((*MockRecordSource)(nil).LoadStored), key, info)
}
