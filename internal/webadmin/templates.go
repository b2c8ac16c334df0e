// ABOUTME: Page rendering for the admin UI
// ABOUTME: Pages are parsed once from the embedded filesystem; the setup guide is markdown

package webadmin

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Page names, each backed by templates/<name>.html
const (
	pageLogin  = "login"
	pageUsers  = "users"
	pageStatus = "status"
	pageSetup  = "setup"
)

type pageData struct {
	Title       string
	Page        string
	Realm       string
	ServiceName string
	Content     template.HTML // rendered markdown, setup page only
}

type pageRenderer struct {
	pages  map[string]*template.Template
	setup  template.HTML
	logger *slog.Logger
}

func newPageRenderer(logger *slog.Logger) (*pageRenderer, error) {
	p := &pageRenderer{
		pages:  make(map[string]*template.Template),
		logger: logger,
	}

	for _, name := range []string{pageLogin, pageUsers, pageStatus, pageSetup} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s page: %w", name, err)
		}
		p.pages[name] = tmpl
	}

	md, err := docsFS.ReadFile("docs/setup.md")
	if err != nil {
		return nil, fmt.Errorf("reading setup guide: %w", err)
	}
	html, err := renderMarkdown(md)
	if err != nil {
		return nil, fmt.Errorf("rendering setup guide: %w", err)
	}
	p.setup = html

	return p, nil
}

// renderMarkdown converts the embedded guide to HTML. The source is compiled
// into the binary, so it is trusted.
func renderMarkdown(src []byte) (template.HTML, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (p *pageRenderer) render(w http.ResponseWriter, name string, data pageData) {
	tmpl, ok := p.pages[name]
	if !ok {
		http.Error(w, "Page not found", http.StatusNotFound)
		return
	}

	data.Page = name
	if name == pageSetup {
		data.Content = p.setup
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		p.logger.Error("failed to render page", "page", name, "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
