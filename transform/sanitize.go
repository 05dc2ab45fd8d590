package transform

import "github.com/microcosm-cc/bluemonday"

// Sanitize scrubs captured render HTML before it is parsed into a Snapshot:
// scripts, iframes, and event handlers from the capturing workspace never
// reach the published page. Presentation attributes survive because the
// publish template reproduces the workspace's styling.
func Sanitize(captured string) string {
	p := bluemonday.UGCPolicy()
	// data: stays allowed so inline media reaches the asset extractor, which
	// replaces it with an uploaded reference.
	p.AllowURLSchemes("http", "https", "mailto", "data")
	p.AllowRelativeURLs(true)
	p.AllowAttrs("class", "style").Globally()
	p.AllowDataAttributes()
	p.AllowElements("video", "audio", "source", "figure", "figcaption", "section", "aside", "picture")
	p.AllowAttrs("src", "controls", "type", "poster").OnElements("video", "audio", "source")
	p.AllowAttrs("srcset", "sizes").OnElements("img", "source")
	return p.Sanitize(captured)
}
