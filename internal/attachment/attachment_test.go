// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// memFS is an in-memory FileSystem.
type memFS map[string][]byte

func (m memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func pagesOf(pages ...string) TextExtractor {
	return TextExtractorFunc(func([]byte) ([]string, error) {
		return append([]string(nil), pages...), nil
	})
}

// =============================================================================
// KIND TESTS
// =============================================================================

func TestKindOf(t *testing.T) {
	tests := []struct {
		mediaType string
		want      Kind
	}{
		{"image/png", KindImage},
		{"image/jpeg", KindImage},
		{"image/gif", KindImage},
		{"image/webp", KindImage},
		{"IMAGE/PNG", KindImage},
		{"application/pdf", KindDocument},
		{"application/pdf; name=x.pdf", KindDocument},
		{"image/svg+xml", KindOpaque},
		{"text/unknown", KindOpaque},
		{"", KindOpaque},
		{"garbage;;", KindOpaque},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.mediaType))
		})
	}
}

// =============================================================================
// CLASSIFIER TESTS
// =============================================================================

func TestClassify_ImageIsRawBase64(t *testing.T) {
	c := NewClassifier(pagesOf())

	r, err := c.Classify("image/png", pngHeader)

	require.NoError(t, err)
	assert.Equal(t, KindImage, r.Kind)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), r.Image)
}

func TestClassify_DocumentJoinsPages(t *testing.T) {
	c := NewClassifier(pagesOf("page one", "page two", "page three"))

	r, err := c.Classify("application/pdf", []byte("%PDF-"))

	require.NoError(t, err)
	assert.Equal(t, KindDocument, r.Kind)
	assert.Equal(t, "page one\n\npage two\n\npage three", r.Text)
}

func TestClassify_DocumentFailureIsFatal(t *testing.T) {
	boom := errors.New("page 2: bad font")
	c := NewClassifier(TextExtractorFunc(func([]byte) ([]string, error) {
		return nil, boom
	}))

	_, err := c.Classify("application/pdf", []byte("%PDF-"))

	assert.ErrorIs(t, err, boom)
}

func TestClassify_OpaqueNeverInspected(t *testing.T) {
	c := NewClassifier(TextExtractorFunc(func([]byte) ([]string, error) {
		t.Fatal("extractor must not run for opaque files")
		return nil, nil
	}))

	r, err := c.Classify("application/zip", nil)

	require.NoError(t, err)
	assert.Equal(t, KindOpaque, r.Kind)
}

func TestPDFExtractor_RejectsNonPDF(t *testing.T) {
	_, err := PDFExtractor{}.ExtractPages([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

// =============================================================================
// MEDIA TYPE TESTS
// =============================================================================

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"report.PDF", nil, "application/pdf"},
		{"photo.jpg", nil, "image/jpeg"},
		{"diagram.webp", nil, "image/webp"},
		{"sheet.xlsx", []byte("PK\x03\x04"), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"noext", pngHeader, "image/png"},
		{"scan", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"), "application/pdf"},
		{"empty", nil, DefaultMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMediaType(tt.name, tt.data))
		})
	}
}

// =============================================================================
// BUNDLE TESTS
// =============================================================================

func TestBuildSources_OneOfEachKind(t *testing.T) {
	b := NewBuilder(memFS{}, NewClassifier(pagesOf("contract text")))

	bundle := b.BuildSources(context.Background(), []Source{
		{Label: "photo.png", MediaType: "image/png", Data: pngHeader},
		{Label: "contract.pdf", MediaType: "application/pdf", Data: []byte("%PDF-")},
		{Label: "blob.bin", MediaType: "text/unknown", Data: []byte("??")},
	})

	assert.Len(t, bundle.Images, 1)
	require.Len(t, bundle.Documents, 1)
	assert.Equal(t, Document{Label: "contract.pdf", Text: "contract text"}, bundle.Documents[0])
	assert.Equal(t, []string{"blob.bin"}, bundle.Opaque)
	assert.Empty(t, bundle.Failed)
	assert.Equal(t, []string{"contract.pdf", "blob.bin"}, bundle.Labels())
}

func TestBuild_ReadsFilesInOrder(t *testing.T) {
	files := memFS{
		"/tmp/a.png": pngHeader,
		"/tmp/b.gif": []byte("GIF89a"),
		"/tmp/c.pdf": []byte("%PDF-"),
	}
	b := NewBuilder(files, NewClassifier(pagesOf("c text")))

	bundle := b.Build(context.Background(), []string{"/tmp/a.png", "/tmp/b.gif", "/tmp/c.pdf"})

	require.Len(t, bundle.Images, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), bundle.Images[0])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("GIF89a")), bundle.Images[1])
	require.Len(t, bundle.Documents, 1)
	assert.Equal(t, "/tmp/c.pdf", bundle.Documents[0].Label)
}

func TestBuild_FailuresAreRecordedNotFatal(t *testing.T) {
	files := memFS{
		"/tmp/bad.pdf": []byte("%PDF-"),
		"/tmp/ok.png":  pngHeader,
	}
	b := NewBuilder(files, NewClassifier(TextExtractorFunc(func([]byte) ([]string, error) {
		return nil, errors.New("page 1: broken xref")
	})))

	bundle := b.Build(context.Background(), []string{"/tmp/missing.png", "/tmp/bad.pdf", "/tmp/ok.png"})

	assert.Len(t, bundle.Images, 1)
	assert.Empty(t, bundle.Documents)
	require.Len(t, bundle.Failed, 2)
	assert.Equal(t, "/tmp/missing.png", bundle.Failed[0].Label)
	assert.ErrorIs(t, bundle.Failed[0].Err, fs.ErrNotExist)
	assert.Equal(t, "/tmp/bad.pdf", bundle.Failed[1].Label)
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bundle := NewBuilder(memFS{"/a.png": pngHeader}, nil).Build(ctx, []string{"/a.png"})

	assert.True(t, bundle.Empty())
	require.Len(t, bundle.Failed, 1)
	assert.ErrorIs(t, bundle.Failed[0].Err, context.Canceled)
}
