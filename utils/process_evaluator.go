package utils

import (
	"context"
	"encoding/json"
	"fmt"
)

// ProcessEvaluator asks the model to critique an extracted playbook against
// the video.
type ProcessEvaluator struct {
	service   ModelService
	templates TemplateSource
	schema    *ResponseSchema
}

func NewProcessEvaluator(service ModelService, templates TemplateSource) (*ProcessEvaluator, error) {
	schema, err := NewResponseSchema("ProcessFeedback", ProcessFeedback{})
	if err != nil {
		return nil, err
	}
	return &ProcessEvaluator{service: service, templates: templates, schema: schema}, nil
}

// BuildParts assembles the reflection prompt: header, the video unless it is
// cached, and the serialized process between <PROCESS> markers.
func (e *ProcessEvaluator) BuildParts(content PreparedContent, process Process) ([]Part, error) {
	header, err := e.templates.Template(PromptReflection)
	if err != nil {
		return nil, err
	}
	serialized, err := json.Marshal(process)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize process: %w", err)
	}

	parts := []Part{TextPart(header)}
	parts = append(parts, content.VideoParts()...)
	return append(parts,
		TextPart("<PROCESS>"),
		TextPart(string(serialized)),
		TextPart("</PROCESS>"),
	), nil
}

// Evaluate runs one reflection call for process and validates the answer.
func (e *ProcessEvaluator) Evaluate(ctx context.Context, model string, content PreparedContent, process Process) (ProcessFeedback, error) {
	parts, err := e.BuildParts(content, process)
	if err != nil {
		return ProcessFeedback{}, err
	}

	candidates, err := e.service.GenerateContent(ctx, GenerateRequest{
		Model:         model,
		CachedContent: content.CacheName,
		Schema:        e.schema,
		Parts:         parts,
	})
	if err != nil {
		return ProcessFeedback{}, fmt.Errorf("error evaluating process: %w", err)
	}
	text, err := firstText(candidates)
	if err != nil {
		return ProcessFeedback{}, err
	}

	var feedback ProcessFeedback
	if err := e.schema.Decode(text, &feedback); err != nil {
		return ProcessFeedback{}, err
	}
	return feedback, nil
}
