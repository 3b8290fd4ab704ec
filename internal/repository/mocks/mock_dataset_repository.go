package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"optiplus/internal/model"
)

type MockDatasetRepository struct {
	mock.Mock
}

func (m *MockDatasetRepository) Create(ctx context.Context, rec *model.DatasetRecord) (*model.DatasetRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DatasetRecord), args.Error(1)
}

func (m *MockDatasetRepository) FindByID(ctx context.Context, id string) (*model.DatasetRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DatasetRecord), args.Error(1)
}

func (m *MockDatasetRepository) List(ctx context.Context) ([]model.DatasetRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DatasetRecord), args.Error(1)
}

func (m *MockDatasetRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
