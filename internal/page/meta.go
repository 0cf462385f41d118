// Package page holds the title and description of the page being displayed.
package page

// DefaultSiteName is appended to every display title.
const DefaultSiteName = "kalmas.net"

// Meta describes the active page. A fresh Meta is created for every view
// activation and handed to the renderer with the view model.
type Meta struct {
	siteName    string
	title       string
	description string
}

// New returns an empty Meta for siteName. An empty siteName selects
// DefaultSiteName.
func New(siteName string) *Meta {
	if siteName == "" {
		siteName = DefaultSiteName
	}
	return &Meta{siteName: siteName}
}

// SetTitle sets the page title.
func (m *Meta) SetTitle(title string) {
	m.title = title
}

// SetDescription sets the page description.
func (m *Meta) SetDescription(text string) {
	m.description = text
}

// Title returns the raw page title.
func (m *Meta) Title() string {
	return m.title
}

// Description returns the page description.
func (m *Meta) Description() string {
	return m.description
}

// SiteName returns the site name used in display titles.
func (m *Meta) SiteName() string {
	return m.siteName
}

// DisplayTitle is "<title> | <site>" when a title is set, else the site name.
func (m *Meta) DisplayTitle() string {
	if m.title == "" {
		return m.siteName
	}
	return m.title + " | " + m.siteName
}
