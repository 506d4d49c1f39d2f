package utils

import (
	"context"
	"errors"
	"time"
)

// ErrCacheIneligible is returned by ModelService.CreateCachedContent when the
// service refuses to cache the content, e.g. because the video is below the
// minimum token count for caching.
var ErrCacheIneligible = errors.New("content is not eligible for caching")

// ErrNoCandidates is returned when a response carries no candidate text.
var ErrNoCandidates = errors.New("model returned no candidates")

// ErrUnsupportedMedia is returned when a backend cannot take a file part of
// the given MIME type.
var ErrUnsupportedMedia = errors.New("unsupported media")

// Part is one piece of multimodal input. Either Text or FileURI is set.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func FilePart(uri, mimeType string) Part {
	return Part{FileURI: uri, MIMEType: mimeType}
}

// IsFile reports whether the part references remote media.
func (p Part) IsFile() bool {
	return p.FileURI != ""
}

type CacheRequest struct {
	Model       string
	Parts       []Part
	TTL         time.Duration
	DisplayName string
}

type GenerateRequest struct {
	Model string
	// CachedContent is the handle returned by CreateCachedContent, if any.
	CachedContent string
	Schema        *ResponseSchema
	Parts         []Part
}

// Candidate is one alternative output of a generate call.
type Candidate struct {
	Parts []Part
}

type ModelService interface {
	CreateCachedContent(ctx context.Context, req CacheRequest) (string, error)
	GenerateContent(ctx context.Context, req GenerateRequest) ([]Candidate, error)
}

// TemplateSource looks up prompt templates by key, e.g. "analyze/events".
type TemplateSource interface {
	Template(key string) (string, error)
}

type LanguageDetector interface {
	DetectLanguage(text string) (string, bool)
}
