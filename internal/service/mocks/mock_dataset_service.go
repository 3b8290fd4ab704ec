package mocks

import (
	"context"
	"io"

	"optiplus/internal/model"
	"optiplus/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockDatasetService is a mock implementation of service.DatasetService.
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Create(ctx context.Context, filename string, r io.Reader) (*service.DatasetResult, error) {
	args := m.Called(ctx, filename, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DatasetResult), args.Error(1)
}

func (m *MockDatasetService) List(ctx context.Context) ([]model.Dataset, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Dataset), args.Error(1)
}

func (m *MockDatasetService) Get(ctx context.Context, id string) (*service.DatasetResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DatasetResult), args.Error(1)
}

func (m *MockDatasetService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDatasetService) Export(ctx context.Context, id string) (*service.ExportResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportResult), args.Error(1)
}
