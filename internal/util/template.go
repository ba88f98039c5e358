package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Template is a parsed instruction template. Instructions are plain text sent
// to a model, so no HTML escaping is applied.
type Template struct {
	text string
	tmpl *template.Template // nil when text has no actions
}

var templateFuncs = template.FuncMap{
	"default": func(fallback, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"money": func(v any) string {
		switch n := v.(type) {
		case float64:
			return fmt.Sprintf("$%.2f", n)
		case float32:
			return fmt.Sprintf("$%.2f", n)
		case int:
			return fmt.Sprintf("$%d.00", n)
		default:
			return fmt.Sprint(v)
		}
	},
}

// ParseTemplate parses text once so it can be rendered on every turn.
func ParseTemplate(name, text string) (*Template, error) {
	t := &Template{text: text}
	if !strings.Contains(text, "{{") {
		return t, nil
	}
	tmpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %q: %w", name, err)
	}
	t.tmpl = tmpl
	return t, nil
}

// Render executes the template with vars as dot.
func (t *Template) Render(vars map[string]any) (string, error) {
	if t.tmpl == nil {
		return t.text, nil
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %q: %w", t.tmpl.Name(), err)
	}
	return buf.String(), nil
}

// RenderTemplate parses and renders text in one step.
func RenderTemplate(text string, vars map[string]any) (string, error) {
	t, err := ParseTemplate("prompt", text)
	if err != nil {
		return "", err
	}
	return t.Render(vars)
}
