// Package static embeds the demo frontend.
package static

import (
	_ "embed"
)

//go:embed index.html
var indexHTML []byte

// Index returns the embedded demo page.
func Index() []byte {
	return indexHTML
}
