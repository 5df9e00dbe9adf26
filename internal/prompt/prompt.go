// Package prompt assembles AI prompts from templates and ordered optional
// sections.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Render substitutes data into tmpl. Missing fields render as empty.
func Render(name, tmpl string, data any) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}

// Section is one titled block of a prompt.
type Section struct {
	Title string
	Body  string
}

// Document is a preamble followed by sections in insertion order. Sections
// with an empty body are never added.
type Document struct {
	Preamble string
	sections []Section
}

// Add appends a section when body is non-empty.
func (d *Document) Add(title, body string) *Document {
	body = strings.TrimSpace(body)
	if body == "" {
		return d
	}
	d.sections = append(d.sections, Section{Title: title, Body: body})
	return d
}

// AddIf appends a section only when present is true.
func (d *Document) AddIf(present bool, title, body string) *Document {
	if !present {
		return d
	}
	return d.Add(title, body)
}

// Sections returns the sections that will be rendered.
func (d *Document) Sections() []Section {
	out := make([]Section, len(d.sections))
	copy(out, d.sections)
	return out
}

// String renders the document.
func (d *Document) String() string {
	var b strings.Builder
	if p := strings.TrimSpace(d.Preamble); p != "" {
		b.WriteString(p)
	}
	for _, s := range d.sections {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		if s.Title != "" {
			fmt.Fprintf(&b, "## %s\n", s.Title)
		}
		b.WriteString(s.Body)
	}
	return b.String()
}
