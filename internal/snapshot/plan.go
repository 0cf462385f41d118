package snapshot

import (
	"net/url"
	"strings"

	"github.com/kalmas/kalmas-net/internal/content"
)

// StaticPage is a non-post page that gets a snapshot.
type StaticPage struct {
	Path string
	File string
}

// StaticPages lists the pages rendered alongside the posts.
var StaticPages = []StaticPage{
	{Path: "/", File: "index.html"},
}

// Plan builds the task list for host: one task per post followed by one per
// static page. A target claimed by an earlier task is not planned again.
func Plan(host string, toc []content.PostSummary) []Task {
	host = strings.TrimRight(host, "/")
	seen := make(map[string]bool, len(toc)+len(StaticPages))
	tasks := make([]Task, 0, len(toc)+len(StaticPages))
	add := func(t Task) {
		if seen[t.Target] {
			return
		}
		seen[t.Target] = true
		tasks = append(tasks, t)
	}
	for _, post := range toc {
		add(Task{
			URL:    host + "/blog/" + url.PathEscape(post.Slug),
			Target: "blog/" + post.Slug + ".html",
		})
	}
	for _, page := range StaticPages {
		add(Task{URL: host + page.Path, Target: page.File})
	}
	return tasks
}
