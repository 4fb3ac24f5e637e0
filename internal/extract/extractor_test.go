package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const documentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>ACME Corp signed </w:t></w:r><w:r><w:t>the lease.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>12 Main Street</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>
  </w:body>
</w:document>`

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type fakeRunner struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	f.calls++
	return f.out, nil, f.err
}

func TestExtractTextDOCX(t *testing.T) {
	doc := buildDOCX(t, documentXML)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(doc)
	}))
	defer srv.Close()

	e := NewExtractor(Config{}, srv.Client(), discardLogger())
	res, err := e.ExtractText(context.Background(), srv.URL+"/landing-zone/lease.docx?sig=abc")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp signed the lease.\n12 Main Street\nCol A\tCol B", res.Text)
	assert.Equal(t, "docx", res.Format)
	assert.Equal(t, "docx-xml", res.Method)
	assert.Equal(t, len(doc), res.Bytes)
}

func TestExtractTextUnsupportedSkipsFetch(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	e := NewExtractor(Config{}, srv.Client(), discardLogger())
	_, err := e.ExtractText(context.Background(), srv.URL+"/notes.txt")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestExtractTextFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewExtractor(Config{}, srv.Client(), discardLogger())
	_, err := e.ExtractText(context.Background(), srv.URL+"/a.pdf")
	assert.ErrorIs(t, err, common.ErrFetch)
}

func TestExtractTextPDFUsesPdftotext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	}))
	defer srv.Close()

	fr := &fakeRunner{out: []byte("page one\fpage two\f")}
	e := NewExtractor(Config{Pdftotext: "pdftotext"}, srv.Client(), discardLogger()).WithRunner(fr)
	res, err := e.ExtractText(context.Background(), srv.URL+"/a.PDF")
	require.NoError(t, err)
	assert.Equal(t, 1, fr.calls)
	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "page one\npage two\n", res.Text)
}

func TestExtractTextPDFFallbackFailsOnGarbage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a pdf"))
	}))
	defer srv.Close()

	fr := &fakeRunner{err: errors.New("exit status 1")}
	e := NewExtractor(Config{Pdftotext: "pdftotext"}, srv.Client(), discardLogger()).WithRunner(fr)
	res, err := e.ExtractText(context.Background(), srv.URL+"/a.pdf")
	require.Error(t, err)
	assert.Equal(t, "pdf-go", res.Method)
	assert.Len(t, res.Warnings, 1)
}

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/present.pdf":
			w.WriteHeader(http.StatusOK)
		case "/broken.pdf":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	e := NewExtractor(Config{}, srv.Client(), discardLogger())
	ok, err := e.Exists(context.Background(), srv.URL+"/present.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = e.Exists(context.Background(), srv.URL+"/gone.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = e.Exists(context.Background(), srv.URL+"/broken.pdf")
	assert.ErrorIs(t, err, common.ErrFetch)
}
