// Package web embeds the portal's HTML templates and static assets.
package web

import "embed"

//go:embed templates
var TemplateFiles embed.FS

//go:embed static
var StaticFiles embed.FS
