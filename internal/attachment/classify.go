// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/jeranaias/mailassist/internal/util"
)

// =============================================================================
// KIND
// =============================================================================

// Kind is the disposition of a classified file.
type Kind int

const (
	KindOpaque Kind = iota
	KindImage
	KindDocument
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDocument:
		return "document"
	default:
		return "opaque"
	}
}

var imageTypes = map[string]bool{
	"image/webp": true,
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
}

const pdfType = "application/pdf"

// KindOf maps a declared media type to its disposition. Parameters such
// as charset are ignored and matching is case-insensitive.
func KindOf(mediaType string) Kind {
	mt := baseType(mediaType)
	switch {
	case imageTypes[mt]:
		return KindImage
	case mt == pdfType:
		return KindDocument
	default:
		return KindOpaque
	}
}

func baseType(mediaType string) string {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// =============================================================================
// CLASSIFIER
// =============================================================================

// TextExtractor returns the text of each page of a document, in page
// order. An error on any page fails the whole document.
type TextExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// TextExtractorFunc adapts a function to TextExtractor.
type TextExtractorFunc func(data []byte) ([]string, error)

// ExtractPages implements TextExtractor.
func (f TextExtractorFunc) ExtractPages(data []byte) ([]string, error) {
	return f(data)
}

// Result is the outcome of classifying one file.
type Result struct {
	Kind Kind

	// Image is the base64 payload for KindImage.
	Image string

	// Text is the extracted text for KindDocument.
	Text string
}

// Classifier routes files by media type.
type Classifier struct {
	extractor TextExtractor
}

// NewClassifier creates a classifier. A nil extractor means PDFExtractor.
func NewClassifier(extractor TextExtractor) *Classifier {
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	return &Classifier{extractor: extractor}
}

// Classify converts data according to its declared media type. Opaque
// files are not inspected and never produce an error.
func (c *Classifier) Classify(mediaType string, data []byte) (Result, error) {
	switch kind := KindOf(mediaType); kind {
	case KindImage:
		return Result{Kind: kind, Image: base64.StdEncoding.EncodeToString(data)}, nil

	case KindDocument:
		pages, err := c.extractor.ExtractPages(data)
		if err != nil {
			return Result{}, fmt.Errorf("extract text: %w", err)
		}
		for i := range pages {
			pages[i] = util.NormalizeText(pages[i])
		}
		return Result{Kind: kind, Text: strings.Join(pages, "\n\n")}, nil

	default:
		return Result{Kind: KindOpaque}, nil
	}
}
