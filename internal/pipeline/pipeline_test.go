package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/extract"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/lock"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/repository"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/storage"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/translator"
)

var testLayout = storage.Layout{
	AccountURL:       "https://acct.blob.core.windows.net",
	Container:        constants.DefaultContainer,
	SASToken:         "?sv=1&sig=abc",
	LandingPrefix:    constants.DefaultLandingPrefix,
	TranslatedPrefix: constants.DefaultTranslatedPrefix,
	GlossaryPrefix:   constants.DefaultGlossaryPrefix,
	WatermarkPrefix:  constants.DefaultWatermarkPrefix,
}

var fixedNow = time.Date(2024, 5, 1, 9, 8, 7, 0, time.UTC)

type fixture struct {
	db      *repository.DB
	files   repository.FileTranslationRepository
	prompts repository.PromptRepository
	store   *storage.MemoryStore
	upload  *UploadStage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite::memory:"}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, discardLogger()) })
	require.NoError(t, repository.Migrate(ctx, db, discardLogger()))

	f := &fixture{
		db:      db,
		files:   repository.NewFileTranslationRepository(db, discardLogger()),
		prompts: repository.NewPromptRepository(db, discardLogger()),
		store:   storage.NewMemoryStore(),
	}
	f.upload = NewUploadStage(f.files, f.store, testLayout, discardLogger())
	f.upload.Now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) uploadInvoice(t *testing.T, promptID *int64) {
	t.Helper()
	_, err := f.upload.Run(context.Background(), UploadRequest{
		FileName:      "invoice.pdf",
		Content:       []byte("%PDF-1.4 invoice"),
		ContentType:   "application/pdf",
		FromLanguage:  "en",
		ToLanguage:    "fr",
		ExclusionText: "ACME Corp\r\n\r\nWidget, Inc",
		PromptID:      promptID,
	})
	require.NoError(t, err)
}

func TestUploadCreatesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.upload.Run(ctx, UploadRequest{
		FileName:     "invoice.pdf",
		Content:      []byte("%PDF-1.4 invoice"),
		FromLanguage: "en",
		ToLanguage:   "fr",
	})
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", res.FileName)
	assert.Equal(t, "https://acct.blob.core.windows.net/translation-service/landing-zone/invoice.pdf?sv=1&sig=abc", res.LandingZonePath)

	obj, ok := f.store.Object("landing-zone/invoice.pdf")
	require.True(t, ok)
	assert.Equal(t, storage.Digest([]byte("%PDF-1.4 invoice")), obj.Meta[storage.MetaDigest])

	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDone, rec.UploadStatus)
	assert.Equal(t, constants.UnknownUploader, rec.UploadedBy)
	assert.Equal(t, "pdf", rec.FileType)
}

func TestUploadRenamesDuplicate(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)

	res, err := f.upload.Run(context.Background(), UploadRequest{
		FileName: "invoice.pdf", Content: []byte("again"), FromLanguage: "en", ToLanguage: "de",
	})
	require.NoError(t, err)
	assert.Equal(t, "invoice_20240501090807.pdf", res.FileName)
	_, ok := f.store.Object("landing-zone/invoice_20240501090807.pdf")
	assert.True(t, ok)
}

func TestUploadRejectsBeforeAnyWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []UploadRequest{
		{FileName: "notes.txt", Content: []byte("x"), FromLanguage: "en", ToLanguage: "fr"},
		{FileName: "a.pdf", Content: []byte("x"), ToLanguage: "fr"},
		{FileName: "a.pdf", Content: []byte("x"), FromLanguage: "en"},
		{FileName: "", Content: []byte("x"), FromLanguage: "en", ToLanguage: "fr"},
		{FileName: "a.pdf", FromLanguage: "en", ToLanguage: "fr"},
	}
	for _, req := range cases {
		_, err := f.upload.Run(ctx, req)
		assert.ErrorIs(t, err, common.ErrInvalidInput, req.FileName)
	}

	all, err := f.files.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, ok := f.store.Object("landing-zone/notes.txt")
	assert.False(t, ok)
}

type translateMocks struct {
	source   *MockSource
	extract  *MockExtractor
	entities *MockEntities
	jobs     *MockJobs
}

func newTranslateStage(f *fixture) (*TranslateStage, translateMocks) {
	m := translateMocks{&MockSource{}, &MockExtractor{}, &MockEntities{}, &MockJobs{}}
	s := NewTranslateStage(TranslateDeps{
		Files:     f.files,
		Prompts:   f.prompts,
		Source:    m.source,
		Extractor: m.extract,
		Entities:  m.entities,
		Jobs:      m.jobs,
		Store:     f.store,
		Layout:    testLayout,
	}, discardLogger())
	s.Now = func() time.Time { return fixedNow }
	return s, m
}

const landingURL = "https://acct.blob.core.windows.net/translation-service/landing-zone/invoice.pdf?sv=1&sig=abc"

func TestTranslateSuccess(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	ctx := context.Background()
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, landingURL).Return(true, nil)
	m.extract.On("ExtractText", mock.Anything, landingURL).
		Return(extract.TextExtractionResult{Text: "Office: 12 Main Street, Springfield", Pages: 1}, nil)
	m.entities.On("ExtractEntities", mock.Anything, mock.MatchedBy(func(r llm.EntityRequest) bool {
		return r.Instruction == llm.DefaultInstruction && r.Text == "Office: 12 Main Street, Springfield"
	})).Return([]string{"12 Main Street", "Springfield"}, nil)

	job := &translator.Job{Handle: "https://translator/batches/1", State: constants.JobStateSubmitted}
	m.jobs.On("Submit", mock.Anything, translator.BatchRequest{
		SourceURL:    landingURL,
		TargetURL:    "https://acct.blob.core.windows.net/translation-service/translated-zone/invoice.pdf?sv=1&sig=abc",
		GlossaryURL:  "https://acct.blob.core.windows.net/translation-service/glossaries/glossaries_invoice.csv?sv=1&sig=abc",
		FromLanguage: "en",
		ToLanguage:   "fr",
	}).Return(job, nil)
	m.jobs.On("Poll", mock.Anything, job).Return(translator.Result{Status: translator.StatusSucceeded, Attempts: 2}, nil)

	require.NoError(t, s.Run(ctx, "invoice.pdf"))

	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDone, rec.TranslationStatus)
	require.NotNil(t, rec.TranslatedZonePath)
	assert.True(t, strings.HasSuffix(strings.SplitN(*rec.TranslatedZonePath, "?", 2)[0], "/translated-zone/invoice.pdf"))
	assert.Equal(t, constants.StatusDone, rec.GlossaryProcessingStatus)
	require.NotNil(t, rec.GlossaryContent)
	assert.JSONEq(t, `[{"items":"12 Main Street"},{"items":"Springfield"},{"items":"ACME Corp"},{"items":"Widget Inc"}]`, *rec.GlossaryContent)

	obj, ok := f.store.Object("glossaries/glossaries_invoice.csv")
	require.True(t, ok)
	assert.Equal(t, "text/csv", obj.ContentType)
	assert.Equal(t, "\"12 Main Street\",\"12 Main Street\"\r\n\"Springfield\",\"Springfield\"\r\n\"ACME Corp\",\"ACME Corp\"\r\n\"Widget Inc\",\"Widget Inc\"\r\n", string(obj.Data))

	m.jobs.AssertExpectations(t)
	m.entities.AssertExpectations(t)
}

func TestTranslateUsesStoredPrompt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.prompts.Create(ctx, "names", "Extract all company names.")
	require.NoError(t, err)
	f.uploadInvoice(t, &p.ID)
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	m.extract.On("ExtractText", mock.Anything, mock.Anything).Return(extract.TextExtractionResult{Text: "doc"}, nil)
	m.entities.On("ExtractEntities", mock.Anything, mock.MatchedBy(func(r llm.EntityRequest) bool {
		return r.Instruction == "Extract all company names."
	})).Return([]string{}, nil)
	job := &translator.Job{Handle: "h", State: constants.JobStateSubmitted}
	m.jobs.On("Submit", mock.Anything, mock.Anything).Return(job, nil)
	m.jobs.On("Poll", mock.Anything, job).Return(translator.Result{}, nil)

	require.NoError(t, s.Run(ctx, "invoice.pdf"))
	m.entities.AssertExpectations(t)
}

func TestTranslateMissingSourceMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	ctx := context.Background()
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, landingURL).Return(false, nil)

	err := s.Run(ctx, "invoice.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)

	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rec.TranslationStatus)
	assert.Equal(t, constants.StatusFailed, rec.GlossaryProcessingStatus)
	assert.Nil(t, rec.TranslatedZonePath)
	assert.Nil(t, rec.GlossaryZonePath)
	m.extract.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestTranslateModelFailure(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	ctx := context.Background()
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	m.extract.On("ExtractText", mock.Anything, mock.Anything).Return(extract.TextExtractionResult{Text: "doc"}, nil)
	m.entities.On("ExtractEntities", mock.Anything, mock.Anything).Return(nil, common.ErrModel)

	assert.ErrorIs(t, s.Run(ctx, "invoice.pdf"), common.ErrModel)
	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rec.TranslationStatus)
	m.jobs.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestTranslateSubmitFailureKeepsGlossary(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	ctx := context.Background()
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	m.extract.On("ExtractText", mock.Anything, mock.Anything).Return(extract.TextExtractionResult{Text: "doc"}, nil)
	m.entities.On("ExtractEntities", mock.Anything, mock.Anything).Return([]string{"Paris"}, nil)
	m.jobs.On("Submit", mock.Anything, mock.Anything).
		Return(&translator.Job{State: constants.JobStateFailed}, common.ErrJobSubmit)

	assert.ErrorIs(t, s.Run(ctx, "invoice.pdf"), common.ErrJobSubmit)

	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rec.TranslationStatus)
	assert.Nil(t, rec.TranslatedZonePath)
	assert.Equal(t, constants.StatusDone, rec.GlossaryProcessingStatus)
	require.NotNil(t, rec.GlossaryZonePath)
	m.jobs.AssertNotCalled(t, "Poll", mock.Anything, mock.Anything)
}

func TestTranslatePollFailure(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	ctx := context.Background()
	s, m := newTranslateStage(f)

	m.source.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	m.extract.On("ExtractText", mock.Anything, mock.Anything).Return(extract.TextExtractionResult{Text: "doc"}, nil)
	m.entities.On("ExtractEntities", mock.Anything, mock.Anything).Return([]string{"Paris"}, nil)
	job := &translator.Job{Handle: "h", State: constants.JobStateSubmitted}
	m.jobs.On("Submit", mock.Anything, mock.Anything).Return(job, nil)
	m.jobs.On("Poll", mock.Anything, job).Return(translator.Result{Attempts: 1}, common.ErrJobPoll)

	assert.ErrorIs(t, s.Run(ctx, "invoice.pdf"), common.ErrJobPoll)
	rec, err := f.files.Get(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rec.TranslationStatus)
	assert.Nil(t, rec.TranslatedZonePath)
}

func TestTranslateSkipsHeldLock(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	s, m := newTranslateStage(f)
	locker := lock.NewMemory()
	s.Locker = locker

	release, err := locker.Acquire(context.Background(), "translate:invoice.pdf", time.Minute)
	require.NoError(t, err)
	defer release()

	require.NoError(t, s.Run(context.Background(), "invoice.pdf"))
	m.source.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestTranslateRejectsUnsupported(t *testing.T) {
	f := newFixture(t)
	s, _ := newTranslateStage(f)
	assert.ErrorIs(t, s.Run(context.Background(), "notes.txt"), common.ErrUnsupportedFormat)
}

func newWatermarkStage(f *fixture) (*WatermarkStage, *MockConverter, *MockStamper) {
	conv, stamp := &MockConverter{}, &MockStamper{}
	s := NewWatermarkStage(f.files, f.store, testLayout, conv, stamp, discardLogger())
	s.Now = func() time.Time { return fixedNow }
	return s, conv, stamp
}

func putTranslated(t *testing.T, f *fixture, name string, data []byte) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), "translated-zone/"+name, strings.NewReader(string(data)), int64(len(data)), "", nil))
}

func TestWatermarkPDF(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	putTranslated(t, f, "invoice.pdf", []byte("%PDF translated"))
	s, conv, stamp := newWatermarkStage(f)
	stamp.On("Stamp", mock.Anything, []byte("%PDF translated")).Return([]byte("%PDF stamped"), nil)

	res, err := s.Run(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, "invoice.pdf", res.OutputName)

	obj, ok := f.store.Object("watermark/invoice.pdf")
	require.True(t, ok)
	assert.Equal(t, "%PDF stamped", string(obj.Data))
	assert.Equal(t, "application/pdf", obj.ContentType)

	rec, err := f.files.Get(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDone, rec.WatermarkStatus)
	require.NotNil(t, rec.WatermarkZonePath)
	assert.Equal(t, "https://acct.blob.core.windows.net/translation-service/watermark/invoice.pdf?sv=1&sig=abc", *rec.WatermarkZonePath)
	conv.AssertNotCalled(t, "ToPDF", mock.Anything, mock.Anything)
}

func TestWatermarkDOCXIsConverted(t *testing.T) {
	f := newFixture(t)
	_, err := f.upload.Run(context.Background(), UploadRequest{
		FileName: "contract.docx", Content: []byte("PK"), FromLanguage: "en", ToLanguage: "es",
	})
	require.NoError(t, err)
	putTranslated(t, f, "contract.docx", []byte("PK translated"))

	s, conv, stamp := newWatermarkStage(f)
	conv.On("ToPDF", mock.Anything, []byte("PK translated")).Return([]byte("%PDF converted"), nil)
	stamp.On("Stamp", mock.Anything, []byte("%PDF converted")).Return([]byte("%PDF stamped"), nil)

	res, err := s.Run(context.Background(), "contract.docx")
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", res.OutputName)
	_, ok := f.store.Object("watermark/contract.pdf")
	assert.True(t, ok)
}

func TestWatermarkMissingSource(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	s, _, _ := newWatermarkStage(f)

	_, err := s.Run(context.Background(), "invoice.pdf")
	assert.ErrorIs(t, err, ErrSourceMissing)
	assert.ErrorIs(t, err, common.ErrNotFound)

	rec, err := f.files.Get(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	assert.Empty(t, rec.WatermarkStatus)
}

func TestWatermarkStampFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.uploadInvoice(t, nil)
	putTranslated(t, f, "invoice.pdf", []byte("%PDF translated"))
	s, _, stamp := newWatermarkStage(f)
	stamp.On("Stamp", mock.Anything, mock.Anything).Return(nil, errors.New("corrupt pdf"))

	_, err := s.Run(context.Background(), "invoice.pdf")
	require.Error(t, err)

	rec, err := f.files.Get(context.Background(), "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, rec.WatermarkStatus)
	assert.Nil(t, rec.WatermarkZonePath)
}

func TestWatermarkRejectsUnsupported(t *testing.T) {
	f := newFixture(t)
	s, _, _ := newWatermarkStage(f)
	_, err := s.Run(context.Background(), "image.png")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}
