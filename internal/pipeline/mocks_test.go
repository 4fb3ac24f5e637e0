package pipeline

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/extract"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/translator"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockSource struct{ mock.Mock }

func (m *MockSource) Exists(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) ExtractText(ctx context.Context, url string) (extract.TextExtractionResult, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(extract.TextExtractionResult), args.Error(1)
}

type MockEntities struct{ mock.Mock }

func (m *MockEntities) ExtractEntities(ctx context.Context, req llm.EntityRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockJobs struct{ mock.Mock }

func (m *MockJobs) Submit(ctx context.Context, req translator.BatchRequest) (*translator.Job, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*translator.Job), args.Error(1)
}

func (m *MockJobs) Poll(ctx context.Context, job *translator.Job) (translator.Result, error) {
	args := m.Called(ctx, job)
	return args.Get(0).(translator.Result), args.Error(1)
}

type MockConverter struct{ mock.Mock }

func (m *MockConverter) ToPDF(ctx context.Context, docx []byte) ([]byte, error) {
	args := m.Called(ctx, docx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockStamper struct{ mock.Mock }

func (m *MockStamper) Stamp(ctx context.Context, pdf []byte) ([]byte, error) {
	args := m.Called(ctx, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
