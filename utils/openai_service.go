package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIService talks to any OpenAI compatible chat completion endpoint.
// Such endpoints have no cached content and accept images but no video, so a
// request carrying a video part fails before anything is sent.
type OpenAIService struct {
	client *openai.Client
}

func NewOpenAIService(apiKey, baseURL string) (*OpenAIService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIService{client: openai.NewClientWithConfig(cfg)}, nil
}

func (s *OpenAIService) CreateCachedContent(ctx context.Context, req CacheRequest) (string, error) {
	return "", fmt.Errorf("%w: cached content is not supported by OpenAI compatible endpoints", ErrCacheIneligible)
}

func (s *OpenAIService) GenerateContent(ctx context.Context, req GenerateRequest) ([]Candidate, error) {
	parts, err := chatParts(req.Parts)
	if err != nil {
		return nil, err
	}
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
	}
	if req.Schema != nil {
		schema, err := json.Marshal(req.Schema.Flat)
		if err != nil {
			return nil, fmt.Errorf("failed to encode response schema: %w", err)
		}
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.Schema.Name,
				Schema: json.RawMessage(schema),
			},
		}
	}

	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("error creating chat completion: %w", err)
	}

	candidates := make([]Candidate, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		candidates = append(candidates, Candidate{Parts: []Part{TextPart(choice.Message.Content)}})
	}
	return candidates, nil
}

// chatParts maps prompt parts onto chat message parts. Images go as image
// URLs. Any other media fails with ErrUnsupportedMedia.
func chatParts(parts []Part) ([]openai.ChatMessagePart, error) {
	out := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsFile() && strings.HasPrefix(p.MIMEType, "image/"):
			out = append(out, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: p.FileURI},
			})
		case p.IsFile():
			return nil, fmt.Errorf("%w: %s input %s is not supported by OpenAI compatible endpoints", ErrUnsupportedMedia, p.MIMEType, p.FileURI)
		default:
			out = append(out, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return out, nil
}
