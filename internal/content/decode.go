package content

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadTOC fetches and decodes the table of contents.
func LoadTOC(ctx context.Context, f Fetcher) ([]PostSummary, error) {
	data, err := f.Fetch(ctx, TOCPath)
	if err != nil {
		return nil, fmt.Errorf("fetch toc: %w", err)
	}
	return DecodeTOC(data)
}

// DecodeTOC parses a toc.json document.
func DecodeTOC(data []byte) ([]PostSummary, error) {
	var toc TableOfContents
	if err := json.Unmarshal(data, &toc); err != nil {
		return nil, fmt.Errorf("decode toc: %w", err)
	}
	if toc.Content == nil {
		return []PostSummary{}, nil
	}
	return toc.Content, nil
}

// LoadProfile fetches and decodes the about document.
func LoadProfile(ctx context.Context, f Fetcher) (Profile, error) {
	data, err := f.Fetch(ctx, ProfilePath)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}
