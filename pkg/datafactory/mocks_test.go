package datafactory_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/scalde/scalde-go/pkg/datafactory"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context) (*datafactory.Frame, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).(*datafactory.Frame)
	return f, args.Error(1)
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Export(ctx context.Context, f *datafactory.Frame) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	args := m.Called(ctx, bucket, name)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *mockStorage) WriteObject(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	args := m.Called(ctx, bucket, name, data, contentType)
	return args.Error(0)
}

func (m *mockStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	args := m.Called(ctx, bucket, prefix)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}

func (m *mockStorage) ObjectExists(ctx context.Context, bucket, name string) (bool, error) {
	args := m.Called(ctx, bucket, name)
	return args.Bool(0), args.Error(1)
}

func loaderOf(f *datafactory.Frame) *mockLoader {
	l := &mockLoader{}
	l.On("Load", mock.Anything).Return(f, nil)
	return l
}

func okExporter() *mockExporter {
	e := &mockExporter{}
	e.On("Export", mock.Anything, mock.Anything).Return(nil)
	return e
}
