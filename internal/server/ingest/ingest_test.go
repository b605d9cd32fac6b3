package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/credeval/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func TestConvert_PDFPagesJoinedInOrder(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{
		{text: "page one", delay: 30 * time.Millisecond},
		{text: "page two", delay: 10 * time.Millisecond},
		{text: "page three"},
	}}
	c := NewConverter(r, testConfig(), logging.Nop())

	got, err := c.Convert(context.Background(), pdfUpload(t))
	require.NoError(t, err)

	want := "page one" + PageSeparator + "page two" + PageSeparator + "page three"
	assert.Equal(t, want, got.Content)
	assert.Equal(t, 3, got.PageCount)
	assert.Equal(t, MimePDF, got.Mimetype)

	sum := blake2b.Sum256([]byte(want))
	assert.Equal(t, hex.EncodeToString(sum[:]), got.Checksum)
}

func TestConvert_PageFailureFailsWholeDocument(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{
		{text: "page one"},
		{err: errors.New("garbled xref")},
		{text: "page three"},
	}}
	c := NewConverter(r, testConfig(), logging.Nop())

	got, err := c.Convert(context.Background(), pdfUpload(t))
	require.ErrorIs(t, err, ErrConversionFailed)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Page)
	assert.Empty(t, got.Content)
	assert.False(t, IsTransient(err))
}

func TestConvert_ReportsLowestFailingPage(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{
		{text: "ok", delay: 30 * time.Millisecond},
		{err: errors.New("slow failure"), delay: 20 * time.Millisecond},
		{err: errors.New("fast failure")},
	}}
	c := NewConverter(r, testConfig(), logging.Nop())

	_, err := c.Convert(context.Background(), pdfUpload(t))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Page)
	assert.EqualError(t, ce.Err, "slow failure")
}

func TestConvert_SkipsPagesAfterFailureWithOneWorker(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{
		{err: errors.New("bad page")},
		{text: "never read"},
		{text: "never read"},
	}}
	cfg := testConfig()
	cfg.PageWorkers = 1
	c := NewConverter(r, cfg, logging.Nop())

	_, err := c.Convert(context.Background(), pdfUpload(t))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Page)
	assert.Equal(t, int32(1), r.extracts.Load())
}

func TestConvert_RenderFailure(t *testing.T) {
	r := &fakeRasterizer{renderErr: errors.New("not a pdf")}
	c := NewConverter(r, testConfig(), logging.Nop())

	_, err := c.Convert(context.Background(), pdfUpload(t))
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Page)
}

func TestConvert_TimeoutIsConversionFailure(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{{text: "fine"}, {block: true}}}
	cfg := testConfig()
	cfg.DocumentTimeout = 50 * time.Millisecond
	c := NewConverter(r, cfg, logging.Nop())

	start := time.Now()
	_, err := c.Convert(context.Background(), pdfUpload(t))
	assert.Less(t, time.Since(start), time.Second)

	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Page)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsTransient(err))
}

func TestConvert_CallerCancellation(t *testing.T) {
	r := &fakeRasterizer{pages: []fakePage{{block: true}}}
	c := NewConverter(r, testConfig(), logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Convert(ctx, pdfUpload(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrConversionFailed)
}

func TestConvert_Validation(t *testing.T) {
	c := NewConverter(&fakeRasterizer{}, testConfig(), logging.Nop())
	ctx := context.Background()

	textPath := writeFile(t, "notes.txt", "hello")

	tests := []struct {
		name string
		u    RawUpload
		want error
	}{
		{"missing path", RawUpload{Mimetype: MimeText, Size: 5}, ErrUnsupportedType},
		{"zero size", RawUpload{Path: textPath, Mimetype: MimeText}, ErrUnsupportedType},
		{"unsupported mimetype", RawUpload{Path: textPath, Mimetype: "application/zip", Size: 5}, ErrUnsupportedType},
		{"garbage mimetype", RawUpload{Path: textPath, Mimetype: ";;", Size: 5}, ErrUnsupportedType},
		{"pdf that is text", RawUpload{Path: textPath, Mimetype: MimePDF, Size: 5}, ErrUnsupportedType},
		{"missing file", RawUpload{Path: filepath.Join(t.TempDir(), "gone.pdf"), Mimetype: MimePDF, Size: 5}, ErrFileUnreadable},
		{"directory", RawUpload{Path: t.TempDir(), Mimetype: MimeText, Size: 5}, ErrFileUnreadable},
		{"oversized upload", RawUpload{Path: textPath, Mimetype: MimeText, Size: 2 << 20}, ErrContentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Convert(ctx, tt.u)
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, IsTransient(err))
		})
	}
}

func TestConvert_Text(t *testing.T) {
	c := NewConverter(&fakeRasterizer{}, testConfig(), logging.Nop())

	path := writeFile(t, "notes.txt", "line one\r\nline two\x00\n")
	got, err := c.Convert(context.Background(), RawUpload{Path: path, Mimetype: "text/plain; charset=utf-8", Size: 19})
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", got.Content)
	assert.Equal(t, 1, got.PageCount)
	assert.Equal(t, MimeText, got.Mimetype)
}

func TestConvert_ContentTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContentSize = 10
	c := NewConverter(&fakeRasterizer{pages: []fakePage{{text: "123456"}, {text: "789012"}}}, cfg, logging.Nop())

	path := writeFile(t, "notes.txt", strings.Repeat("x", 11))
	_, err := c.Convert(context.Background(), RawUpload{Path: path, Mimetype: MimeText, Size: 11})
	assert.ErrorIs(t, err, ErrContentTooLarge)

	_, err = c.Convert(context.Background(), pdfUpload(t))
	assert.ErrorIs(t, err, ErrContentTooLarge, "joined pages exceed the limit")
}

func TestConvert_Image(t *testing.T) {
	png := "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"
	path := writeFile(t, "diploma.png", png)
	u := RawUpload{Path: path, Mimetype: MimePNG, Size: int64(len(png))}

	c := NewConverter(&fakeRasterizer{imageText: "Diploma of Science"}, testConfig(), logging.Nop())
	got, err := c.Convert(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "Diploma of Science", got.Content)
	assert.Equal(t, 1, got.PageCount)

	c = NewConverter(&fakeRasterizer{imageErr: ErrNoTextLayer}, testConfig(), logging.Nop())
	_, err = c.Convert(context.Background(), u)
	var ce *ConversionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 0, ce.Page)
	assert.ErrorIs(t, err, ErrNoTextLayer)
}

func TestDocxXMLToText(t *testing.T) {
	body := `<w:document><w:body>` +
		`<w:p><w:r><w:t>Bachelor &amp; Master</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Grade</w:t><w:tab/><w:t>1.3</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	assert.Equal(t, "Bachelor & Master\nGrade\t1.3", docxXMLToText(body))
}

func TestReadDocx_Unreadable(t *testing.T) {
	_, err := readDocx(writeFile(t, "broken.docx", "not a zip"))
	assert.ErrorIs(t, err, ErrFileUnreadable)
}

func TestPDFRasterizer_NoTextLayer(t *testing.T) {
	r, err := NewPDFRasterizer("")
	require.NoError(t, err)

	_, err = r.ExtractText(context.Background(), Page{Path: "scan.png"})
	assert.ErrorIs(t, err, ErrNoTextLayer)

	_, err = r.RenderPages(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), RenderOptions{})
	assert.ErrorIs(t, err, ErrFileUnreadable)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrStorageUnavailable))
	assert.True(t, IsTransient(ConversionFailed(2, context.DeadlineExceeded)))
	assert.False(t, IsTransient(ConversionFailed(2, errors.New("bad glyph"))))
	assert.False(t, IsTransient(ErrUnsupportedType))
	assert.EqualError(t, ConversionFailed(2, errors.New("bad glyph")), "conversion failed at page 2: bad glyph")
}
