// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// =============================================================================
// BUNDLE
// =============================================================================

// Document is the extracted text of one document attachment.
type Document struct {
	Label string
	Text  string
}

// Failure records an attachment that was dropped.
type Failure struct {
	Label string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Label, f.Err)
}

// Bundle is the classified content of one send, each group in input order.
type Bundle struct {
	Images    []string
	Documents []Document
	Opaque    []string
	Failed    []Failure
}

// Add files a classification result under label.
func (b *Bundle) Add(label string, r Result) {
	switch r.Kind {
	case KindImage:
		b.Images = append(b.Images, r.Image)
	case KindDocument:
		b.Documents = append(b.Documents, Document{Label: label, Text: r.Text})
	default:
		b.Opaque = append(b.Opaque, label)
	}
}

// Empty reports whether the bundle contributes nothing to a message.
func (b Bundle) Empty() bool {
	return len(b.Images) == 0 && len(b.Documents) == 0
}

// Labels lists the documents and opaque files by name, for display.
func (b Bundle) Labels() []string {
	labels := make([]string, 0, len(b.Documents)+len(b.Opaque))
	for _, d := range b.Documents {
		labels = append(labels, d.Label)
	}
	return append(labels, b.Opaque...)
}

// =============================================================================
// BUILDER
// =============================================================================

// FileSystem reads attachment bytes.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFileSystem reads from the local disk.
type OSFileSystem struct{}

// ReadFile implements FileSystem.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Source is an attachment whose bytes and media type are already known.
type Source struct {
	Label     string
	MediaType string
	Data      []byte
}

// Builder classifies attachments into a Bundle.
type Builder struct {
	fs         FileSystem
	classifier *Classifier
}

// NewBuilder creates a builder. Nil arguments select the OS filesystem and
// the PDF extractor.
func NewBuilder(fs FileSystem, classifier *Classifier) *Builder {
	if fs == nil {
		fs = OSFileSystem{}
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	return &Builder{fs: fs, classifier: classifier}
}

// Build reads and classifies the files at paths. Labels are the paths as
// given. Each file is fully processed before the next one starts.
func (b *Builder) Build(ctx context.Context, paths []string) Bundle {
	var bundle Bundle
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			bundle.Failed = append(bundle.Failed, Failure{Label: path, Err: err})
			continue
		}

		data, err := b.fs.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("ATTACHMENT_READ_FAILED")
			bundle.Failed = append(bundle.Failed, Failure{Label: path, Err: err})
			continue
		}

		b.add(&bundle, Source{
			Label:     path,
			MediaType: DetectMediaType(filepath.Base(path), data),
			Data:      data,
		})
	}
	return bundle
}

// BuildSources classifies attachments whose media type is declared by
// the caller.
func (b *Builder) BuildSources(ctx context.Context, sources []Source) Bundle {
	var bundle Bundle
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			bundle.Failed = append(bundle.Failed, Failure{Label: src.Label, Err: err})
			continue
		}
		b.add(&bundle, src)
	}
	return bundle
}

func (b *Builder) add(bundle *Bundle, src Source) {
	result, err := b.classifier.Classify(src.MediaType, src.Data)
	if err != nil {
		log.Warn().Err(err).Str("attachment", src.Label).Str("type", src.MediaType).Msg("ATTACHMENT_EXTRACT_FAILED")
		bundle.Failed = append(bundle.Failed, Failure{Label: src.Label, Err: err})
		return
	}
	log.Debug().Str("attachment", src.Label).Stringer("kind", result.Kind).Msg("ATTACHMENT_CLASSIFIED")
	bundle.Add(src.Label, result)
}
