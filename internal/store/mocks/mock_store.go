package mocks

import (
	"context"

	"optiplus/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockStore mocks the dataset store as consumed by the catalog service.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, originalName string, data []byte) (*model.DatasetRecord, error) {
	args := m.Called(ctx, originalName, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DatasetRecord), args.Error(1)
}

func (m *MockStore) List(ctx context.Context) ([]model.DatasetRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DatasetRecord), args.Error(1)
}

func (m *MockStore) Lookup(ctx context.Context, id string) (*model.DatasetRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DatasetRecord), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) ([]byte, *model.DatasetRecord, error) {
	args := m.Called(ctx, id)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	var rec *model.DatasetRecord
	if v := args.Get(1); v != nil {
		rec = v.(*model.DatasetRecord)
	}
	return data, rec, args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
