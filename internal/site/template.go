package site

import "html/template"

// pageData is what the page template renders.
type pageData struct {
	SiteTitle string
	Title     string
	BaseURL   string
	Content   template.HTML
	Nav       []navEntry
}

type navEntry struct {
	Title string
	Href  string
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | {{.SiteTitle}}</title>
{{if .BaseURL}}<base href="{{.BaseURL}}">{{end}}
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; }
nav { border-bottom: 1px solid #ddd; margin-bottom: 2rem; padding-bottom: .5rem; }
nav a { margin-right: 1rem; text-decoration: none; }
pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; }
code { background: #f6f8fa; padding: .1rem .3rem; }
</style>
</head>
<body>
<nav>
{{range .Nav}}<a href="{{.Href}}">{{.Title}}</a>{{end}}
</nav>
<main>
{{.Content}}
</main>
</body>
</html>
`))
