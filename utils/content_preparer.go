package utils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultCacheTTL         = 60 * time.Minute
	DefaultCacheDisplayName = "video-playbook-cache"
	DefaultMIMEType         = "video/mp4"
)

// PreparedContent is the video context shared by both stages of every
// iteration. When CacheName is empty the video is sent inline with each call.
type PreparedContent struct {
	VideoURI  string
	MIMEType  string
	CacheName string
}

// Cached reports whether the video is held by the service as cached content.
func (c PreparedContent) Cached() bool {
	return c.CacheName != ""
}

// VideoParts returns the parts that inline the video into a prompt, or nil
// when the cached content already carries it.
func (c PreparedContent) VideoParts() []Part {
	if c.Cached() {
		return nil
	}
	return []Part{
		TextPart("<VIDEO>"),
		FilePart(c.VideoURI, c.MIMEType),
		TextPart("</VIDEO>"),
	}
}

type ContentPreparer struct {
	Service     ModelService
	TTL         time.Duration
	DisplayName string
	Logger      *slog.Logger
}

// Prepare registers the video as cached content when cache is set. A service
// rejection for ineligible content is not an error; the returned content is
// then uncached. Any other failure is returned.
func (p *ContentPreparer) Prepare(ctx context.Context, model, videoURI, mimeType string, cache bool) (PreparedContent, error) {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	content := PreparedContent{VideoURI: videoURI, MIMEType: mimeType}
	if !cache {
		return content, nil
	}

	ttl := p.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	displayName := p.DisplayName
	if displayName == "" {
		displayName = DefaultCacheDisplayName
	}

	name, err := p.Service.CreateCachedContent(ctx, CacheRequest{
		Model:       model,
		Parts:       []Part{FilePart(videoURI, mimeType)},
		TTL:         ttl,
		DisplayName: displayName,
	})
	if err != nil {
		if errors.Is(err, ErrCacheIneligible) {
			// Video is too small to cache, send it with every call instead
			p.logger().Info("video not eligible for caching, sending inline", "video_uri", videoURI)
			return content, nil
		}
		return PreparedContent{}, fmt.Errorf("failed to create cached content: %w", err)
	}

	p.logger().Info("video cached", "video_uri", videoURI, "cache", name, "ttl", ttl)
	content.CacheName = name
	return content, nil
}

func (p *ContentPreparer) logger() *slog.Logger {
	return orDiscard(p.Logger)
}
