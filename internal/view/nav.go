package view

// MenuItem is one entry in the site navigation.
type MenuItem struct {
	Title string
	Link  string
}

// Menu lists the top-level navigation entries.
var Menu = []MenuItem{
	{Title: "Home", Link: "/"},
	{Title: "Blog", Link: "/blog"},
}

// Nav is the navigation bar state for a request path.
type Nav struct {
	Items []MenuItem
	Path  string
}

// NewNav builds the navigation for path.
func NewNav(path string) Nav {
	return Nav{Items: Menu, Path: path}
}

// IsActive reports whether link is exactly the current path.
func (n Nav) IsActive(link string) bool {
	return link == n.Path
}
