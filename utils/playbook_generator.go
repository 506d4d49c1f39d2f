package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultModel      = "gemini-1.5-pro-002"
	DefaultIterations = 5
)

// Request describes one playbook generation.
type Request struct {
	VideoURI string
	// MIMEType defaults to video/mp4.
	MIMEType string
	// Events are prior event annotations, joined with newlines. A single
	// pre-joined string is passed as a one-element slice.
	Events []string
	// Chat is a prior chat transcript. It is accepted but not yet part of
	// any prompt.
	Chat  []string
	Model string
	Cache bool
	// N is the number of extraction and reflection rounds. Zero means
	// DefaultIterations.
	N int
}

type GeneratorOptions struct {
	Service   ModelService
	Templates TemplateSource
	// Detector is optional.
	Detector         LanguageDetector
	CacheTTL         time.Duration
	CacheDisplayName string
	Logger           *slog.Logger
}

// PlaybookGenerator extracts a playbook from a video and has the model
// critique it, N times over.
type PlaybookGenerator struct {
	preparer  *ContentPreparer
	extractor *ProcessExtractor
	evaluator *ProcessEvaluator
	logger    *slog.Logger
}

func NewPlaybookGenerator(opts GeneratorOptions) (*PlaybookGenerator, error) {
	if opts.Service == nil {
		return nil, errors.New("model service is required")
	}
	if opts.Templates == nil {
		return nil, errors.New("template source is required")
	}
	logger := WithComponent(opts.Logger, "playbook_generator")

	extractor, err := NewProcessExtractor(opts.Service, opts.Templates, opts.Detector)
	if err != nil {
		return nil, err
	}
	evaluator, err := NewProcessEvaluator(opts.Service, opts.Templates)
	if err != nil {
		return nil, err
	}

	return &PlaybookGenerator{
		preparer: &ContentPreparer{
			Service:     opts.Service,
			TTL:         opts.CacheTTL,
			DisplayName: opts.CacheDisplayName,
			Logger:      logger,
		},
		extractor: extractor,
		evaluator: evaluator,
		logger:    logger,
	}, nil
}

// GenerateProcess prepares the video once, then runs extraction followed by
// reflection req.N times in sequence. Any error aborts the whole call and no
// partial results are returned.
func (g *PlaybookGenerator) GenerateProcess(ctx context.Context, req Request) ([]Result, error) {
	if req.VideoURI == "" {
		return nil, errors.New("video URI is required")
	}
	n := req.N
	if n == 0 {
		n = DefaultIterations
	}
	if n < 0 {
		return nil, fmt.Errorf("iteration count must be positive, got %d", n)
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	if len(req.Chat) > 0 {
		g.logger.Debug("chat transcript provided but not used in prompts", "lines", len(req.Chat))
	}

	content, err := g.preparer.Prepare(ctx, model, req.VideoURI, req.MIMEType, req.Cache)
	if err != nil {
		return nil, err
	}

	extractParts, err := g.extractor.BuildParts(content, req.Events)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		g.logger.Info("generating playbook", "iteration", i+1, "of", n, "cached", content.Cached())

		process, err := g.extractor.Extract(ctx, model, content, extractParts)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		feedback, err := g.evaluator.Evaluate(ctx, model, content, process)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i+1, err)
		}

		g.logger.Debug("playbook rated", "iteration", i+1, "rating", feedback.Rating, "support", feedback.Support, "actions", len(process.Actions))
		results = append(results, Result{Number: i + 1, Process: process, Feedback: feedback})
	}

	return results, nil
}
