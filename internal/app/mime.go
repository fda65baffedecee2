package app

import (
	"log"
	"mime"
)

func init() {
	ensureMimeType(".webp", "image/webp")
	ensureMimeType(".svg", "image/svg+xml")
}

// ensureMimeType fills gaps in minimal container images so uploaded images
// are served with the right Content-Type.
func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		log.Printf("app: failed to register MIME type for %s: %v", ext, err)
	}
}
