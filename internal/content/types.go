// Package content defines the documents served by the content store and the
// interfaces used to read them.
package content

import (
	"context"
	"errors"
)

// Well-known locations inside the content store.
const (
	// Root is the prefix shared by every blog document.
	Root = "content/blog/"
	// TOCPath locates the table of contents.
	TOCPath = Root + "toc.json"
	// ProfilePath locates the "about" document.
	ProfilePath = Root + "about.json"
	// BodyExt is appended to a slug to locate the post body.
	BodyExt = ".html"
)

// ErrNotFound is returned by a Fetcher when the store has no such document.
var ErrNotFound = errors.New("content not found")

// Fetcher reads raw documents from the content store.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// TableOfContents is the on-disk shape of toc.json. Entries are newest first.
type TableOfContents struct {
	Content []PostSummary `json:"content"`
}

// PostSummary is one entry in the table of contents.
type PostSummary struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Desk  string `json:"desk,omitempty"`
}

// Post is a PostSummary decorated with lookup-time fields. It is never written
// back to the store.
type Post struct {
	PostSummary
	Index       int    `json:"index"`
	ContentPath string `json:"contentPath"`
}

// Profile is the "about" document.
type Profile struct {
	Bio       string    `json:"bio"`
	Skills    []string  `json:"skills"`
	Projects  []Project `json:"projects"`
	Interests Interests `json:"interests"`
}

// Project is a single entry in the profile's project list.
type Project struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Interests groups the profile's current favourites.
type Interests struct {
	Code  string `json:"code"`
	Book  string `json:"book"`
	Music string `json:"music"`
	TV    string `json:"tv"`
}

// BodyPath derives the location of a post body from its slug.
func BodyPath(slug string) string {
	return Root + slug + BodyExt
}
