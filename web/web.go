// Package web embeds the sandbox page served at the relay's root.
package web

import "embed"

// FS holds index.html and the static/ asset tree.
//
//go:embed index.html static
var FS embed.FS
