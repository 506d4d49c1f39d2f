package utils

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPrepareWithoutCache(t *testing.T) {
	p := &ContentPreparer{Service: &MockModelService{
		CreateCachedContentFunc: func(ctx context.Context, req CacheRequest) (string, error) {
			t.Fatal("CreateCachedContent must not be called")
			return "", nil
		},
	}}

	content, err := p.Prepare(context.Background(), "m", "gs://b/v.mp4", "", false)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if content.Cached() {
		t.Error("Expected uncached content")
	}
	if content.MIMEType != DefaultMIMEType {
		t.Errorf("Expected default MIME type, got %q", content.MIMEType)
	}

	parts := content.VideoParts()
	if len(parts) != 3 || parts[0].Text != "<VIDEO>" || parts[1].FileURI != "gs://b/v.mp4" || parts[2].Text != "</VIDEO>" {
		t.Errorf("Unexpected video parts: %+v", parts)
	}
}

func TestPrepareCacheOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCached bool
		wantErr    bool
	}{
		{"created", nil, true, false},
		{"ineligible", fmt.Errorf("%w: too few tokens", ErrCacheIneligible), false, false},
		{"other failure", errors.New("network unreachable"), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CacheRequest
			p := &ContentPreparer{
				Service: &MockModelService{
					CreateCachedContentFunc: func(ctx context.Context, req CacheRequest) (string, error) {
						got = req
						if tt.err != nil {
							return "", tt.err
						}
						return "cachedContents/1", nil
					},
				},
				TTL:         30 * time.Minute,
				DisplayName: "test-cache",
			}

			content, err := p.Prepare(context.Background(), "gemini-x", "gs://b/v.mp4", "video/mp4", true)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Prepare error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if content.Cached() != tt.wantCached {
				t.Errorf("Cached() = %v, want %v", content.Cached(), tt.wantCached)
			}
			if tt.wantCached && content.VideoParts() != nil {
				t.Error("Expected no video parts for cached content")
			}
			if got.TTL != 30*time.Minute || got.DisplayName != "test-cache" || got.Model != "gemini-x" {
				t.Errorf("Unexpected cache request: %+v", got)
			}
		})
	}
}
