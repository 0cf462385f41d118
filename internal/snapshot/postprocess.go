package snapshot

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PostProcessor cleans rendered markup before it is written.
type PostProcessor struct {
	// StripScripts removes every <script> element.
	StripScripts bool
	// RenderHost is replaced by PublicHost wherever it appears in the markup.
	RenderHost string
	PublicHost string
}

// NewPostProcessor builds a PostProcessor. renderURL and publicURL may be
// full URLs or bare hosts; only their host[:port] part is used.
func NewPostProcessor(stripScripts bool, renderURL, publicURL string) PostProcessor {
	return PostProcessor{
		StripScripts: stripScripts,
		RenderHost:   hostOf(renderURL),
		PublicHost:   hostOf(publicURL),
	}
}

// Process applies the configured transformations to body.
func (p PostProcessor) Process(body []byte) ([]byte, error) {
	out := body
	if p.StripScripts {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse rendered html: %w", err)
		}
		doc.Find("script").Remove()
		html, err := doc.Html()
		if err != nil {
			return nil, fmt.Errorf("serialize html: %w", err)
		}
		out = []byte(html)
	}
	if p.RenderHost != "" && p.PublicHost != "" && p.RenderHost != p.PublicHost {
		out = bytes.ReplaceAll(out, []byte(p.RenderHost), []byte(p.PublicHost))
	}
	return out, nil
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
