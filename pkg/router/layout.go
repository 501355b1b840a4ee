package router

import (
	"html/template"
	"io"
)

// Page is the data handed to a Layout.
type Page struct {
	Title string
	Path  string
	Body  template.HTML
}

// Layout wraps a component's first render in a full HTML document.
type Layout func(w io.Writer, page Page) error

var defaultLayout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/_live/stepform.css">
</head>
<body>
<main data-live-root data-live-path="{{.Path}}">{{.Body}}</main>
<script src="/_live/stepform.js" defer></script>
</body>
</html>
`))

// DefaultLayout renders a minimal document that loads the live client.
func DefaultLayout(w io.Writer, page Page) error {
	return defaultLayout.Execute(w, page)
}

// safeHTML marks component output as trusted markup. Components render
// through html/template, which already escapes user values.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}
