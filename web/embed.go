// Package web holds the embedded page templates and stylesheet.
package web

import "embed"

// Templates embeds layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds the stylesheet served under /static/.
//
//go:embed static/**/*
var Static embed.FS
