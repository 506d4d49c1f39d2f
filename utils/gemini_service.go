package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GeminiService talks to Gemini through the Gen AI SDK, either with an API
// key or on Vertex AI.
type GeminiService struct {
	client *genai.Client
}

type GeminiConfig struct {
	APIKey string
	// Project and Location select Vertex AI when Project is set.
	Project  string
	Location string
}

func NewGeminiService(ctx context.Context, cfg GeminiConfig) (*GeminiService, error) {
	cc := &genai.ClientConfig{}
	switch {
	case cfg.Project != "":
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	case cfg.APIKey != "":
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
	default:
		return nil, fmt.Errorf("GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT must be set")
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiService{client: client}, nil
}

func (s *GeminiService) CreateCachedContent(ctx context.Context, req CacheRequest) (string, error) {
	cached, err := s.client.Caches.Create(ctx, req.Model, &genai.CreateCachedContentConfig{
		TTL:         req.TTL,
		DisplayName: req.DisplayName,
		Contents:    []*genai.Content{genaiContent(req.Parts)},
	})
	if err != nil {
		if isInvalidArgument(err) {
			return "", fmt.Errorf("%w: %v", ErrCacheIneligible, err)
		}
		return "", err
	}
	return cached.Name, nil
}

func (s *GeminiService) GenerateContent(ctx context.Context, req GenerateRequest) ([]Candidate, error) {
	config := &genai.GenerateContentConfig{
		CachedContent: req.CachedContent,
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = GenaiSchema(req.Schema.Flat)
	}

	resp, err := s.client.Models.GenerateContent(ctx, req.Model, []*genai.Content{genaiContent(req.Parts)}, config)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(resp.Candidates))
	for _, c := range resp.Candidates {
		var cand Candidate
		if c != nil && c.Content != nil {
			for _, p := range c.Content.Parts {
				if p == nil {
					continue
				}
				cand.Parts = append(cand.Parts, Part{Text: p.Text})
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func genaiContent(parts []Part) *genai.Content {
	gp := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsFile() {
			gp = append(gp, genai.NewPartFromURI(p.FileURI, p.MIMEType))
		} else {
			gp = append(gp, genai.NewPartFromText(p.Text))
		}
	}
	return genai.NewContentFromParts(gp, genai.RoleUser)
}

func isInvalidArgument(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest || apiErr.Status == "INVALID_ARGUMENT"
	}
	return false
}

// GenaiSchema converts a flattened JSON schema document into the Gen AI
// schema type. Unknown keywords are dropped.
func GenaiSchema(node map[string]any) *genai.Schema {
	if node == nil {
		return nil
	}
	s := &genai.Schema{}
	switch schemaType(node) {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	}
	if d, ok := node["description"].(string); ok {
		s.Description = d
	}
	if enum, ok := node["enum"].([]any); ok {
		for _, e := range enum {
			if v, ok := e.(string); ok {
				s.Enum = append(s.Enum, v)
			}
		}
	}
	if props, ok := node["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if child, ok := p.(map[string]any); ok {
				s.Properties[name] = GenaiSchema(child)
			}
		}
	}
	if req, ok := node["required"].([]any); ok {
		for _, r := range req {
			if v, ok := r.(string); ok {
				s.Required = append(s.Required, v)
			}
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		s.Items = GenaiSchema(items)
	}
	if lo, ok := node["minimum"].(float64); ok {
		s.Minimum = &lo
	}
	if hi, ok := node["maximum"].(float64); ok {
		s.Maximum = &hi
	}
	return s
}
