package layout

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.yaml
var embeddedDefaults embed.FS

// EmbeddedFS returns the bundled page documents.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedDefaults, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}
