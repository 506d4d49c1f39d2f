package utils

import (
	"context"
	"fmt"
	"strings"
)

const unknownLanguage = "an unknown language"

// ProcessExtractor asks the model for the playbook shown in a video.
type ProcessExtractor struct {
	service   ModelService
	templates TemplateSource
	detector  LanguageDetector
	schema    *ResponseSchema
}

// NewProcessExtractor creates an extractor. detector may be nil, in which case
// the events language is reported as unknown.
func NewProcessExtractor(service ModelService, templates TemplateSource, detector LanguageDetector) (*ProcessExtractor, error) {
	schema, err := NewResponseSchema("Process", Process{})
	if err != nil {
		return nil, err
	}
	return &ProcessExtractor{
		service:   service,
		templates: templates,
		detector:  detector,
		schema:    schema,
	}, nil
}

// JoinEvents joins event lines into the text given to the events template.
func JoinEvents(events []string) string {
	return strings.Join(events, "\n")
}

// BuildParts assembles the extraction prompt: the analyze instruction, the
// video unless it is cached, and the events section whenever the events list
// has entries, even blank ones.
func (e *ProcessExtractor) BuildParts(content PreparedContent, events []string) ([]Part, error) {
	analyze, err := e.templates.Template(PromptAnalyze)
	if err != nil {
		return nil, err
	}
	parts := []Part{TextPart(analyze)}
	parts = append(parts, content.VideoParts()...)

	if len(events) == 0 {
		return parts, nil
	}
	joined := JoinEvents(events)

	tmpl, err := e.templates.Template(PromptEvents)
	if err != nil {
		return nil, err
	}
	language := unknownLanguage
	if e.detector != nil {
		if l, ok := e.detector.DetectLanguage(joined); ok {
			language = l
		}
	}
	section, err := FormatTemplate(tmpl, map[string]string{
		"events":   joined,
		"language": language,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format %s prompt: %w", PromptEvents, err)
	}
	return append(parts, TextPart(section)), nil
}

// Extract runs one extraction call and validates the answer.
func (e *ProcessExtractor) Extract(ctx context.Context, model string, content PreparedContent, parts []Part) (Process, error) {
	candidates, err := e.service.GenerateContent(ctx, GenerateRequest{
		Model:         model,
		CachedContent: content.CacheName,
		Schema:        e.schema,
		Parts:         parts,
	})
	if err != nil {
		return Process{}, fmt.Errorf("error extracting process: %w", err)
	}
	text, err := firstText(candidates)
	if err != nil {
		return Process{}, err
	}

	var process Process
	if err := e.schema.Decode(text, &process); err != nil {
		return Process{}, err
	}
	return process, nil
}

// firstText returns the text of part 0 of candidate 0.
func firstText(candidates []Candidate) (string, error) {
	if len(candidates) == 0 || len(candidates[0].Parts) == 0 {
		return "", ErrNoCandidates
	}
	return candidates[0].Parts[0].Text, nil
}
