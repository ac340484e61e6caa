package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/bher20/gpumarketwatch/internal/config"
)

// assets embeds the static dashboard files served alongside the generated
// index page.
//
//go:embed static/app.js static/styles.css static/index.html.tmpl
var assets embed.FS

var indexTmpl = template.Must(template.ParseFS(assets, "static/index.html.tmpl"))

// GenerateDashboard renders the static site files keyed by their relative
// path under the site directory.
func GenerateDashboard(dashboard config.DashboardConfig) (map[string]string, error) {
	sections := dashboard.Sections
	if sections == nil {
		sections = []map[string]any{}
	}
	sectionJSON, err := json.Marshal(map[string]any{"sections": sections})
	if err != nil {
		return nil, fmt.Errorf("render: encode dashboard config: %w", err)
	}

	var index bytes.Buffer
	err = indexTmpl.Execute(&index, map[string]any{
		"Title":  dashboard.Title,
		"Intro":  dashboard.Intro,
		"Config": template.JS(sectionJSON),
	})
	if err != nil {
		return nil, fmt.Errorf("render: execute index template: %w", err)
	}

	js, err := assets.ReadFile("static/app.js")
	if err != nil {
		return nil, err
	}
	css, err := assets.ReadFile("static/styles.css")
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"index.html":        index.String(),
		"assets/app.js":     string(js),
		"assets/styles.css": string(css),
	}, nil
}
