// Package bundled carries a small built-in copy of every category list.  It
// is used for lists missing from the configured list directory.
package bundled

import (
	"embed"

	"contentblocker/blocklist"

	"github.com/c2h5oh/datasize"
)

//go:embed *.json
var lists embed.FS

// NewLoader returns a loader reading the built-in lists.
func NewLoader(maxSize datasize.ByteSize) *blocklist.FSLoader {
	return &blocklist.FSLoader{
		FS:      lists,
		MaxSize: maxSize,
	}
}
