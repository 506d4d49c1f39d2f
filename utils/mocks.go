package utils

import (
	"context"
	"fmt"
)

type MockModelService struct {
	CreateCachedContentFunc func(ctx context.Context, req CacheRequest) (string, error)
	GenerateContentFunc     func(ctx context.Context, req GenerateRequest) ([]Candidate, error)
}

func (m *MockModelService) CreateCachedContent(ctx context.Context, req CacheRequest) (string, error) {
	return m.CreateCachedContentFunc(ctx, req)
}

func (m *MockModelService) GenerateContent(ctx context.Context, req GenerateRequest) ([]Candidate, error) {
	return m.GenerateContentFunc(ctx, req)
}

// MapTemplates serves templates from an in-memory map.
type MapTemplates map[string]string

func (m MapTemplates) Template(key string) (string, error) {
	t, ok := m[key]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", key)
	}
	return t, nil
}

type MockLanguageDetector struct {
	DetectLanguageFunc func(text string) (string, bool)
}

func (m *MockLanguageDetector) DetectLanguage(text string) (string, bool) {
	return m.DetectLanguageFunc(text)
}
