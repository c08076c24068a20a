package httpserver

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
)

const (
	layoutGlob   = "templates/layout.html"
	partialsGlob = "templates/partials/*.html"
	pagesGlob    = "templates/pages/*.html"
)

// renderer holds one template set per page, each combining the shared layout
// and partials with the page's own "content" block.
type renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

func newRenderer(fsys fs.FS, funcs template.FuncMap) (*renderer, error) {
	pageFiles, err := fs.Glob(fsys, pagesGlob)
	if err != nil {
		return nil, err
	}
	if len(pageFiles) == 0 {
		return nil, fmt.Errorf("no page templates match %s", pagesGlob)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		name := path.Base(file)
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, layoutGlob, partialsGlob, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}

	r.fragments, err = template.New("fragments").Funcs(funcs).ParseFS(fsys, partialsGlob)
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}
	return r, nil
}

func (r *renderer) execute(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page template %q", page)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

func (r *renderer) fragment(w io.Writer, name string, data any) error {
	return r.fragments.ExecuteTemplate(w, name, data)
}
