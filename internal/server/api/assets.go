package api

import (
	"net/http"

	"github.com/ayusman/signvision/internal/sign"
)

// AssetHandler serves the reference image for a sign.
type AssetHandler struct {
	index *sign.AssetIndex
}

// NewAssetHandler creates an AssetHandler over a prebuilt index.
func NewAssetHandler(index *sign.AssetIndex) *AssetHandler {
	return &AssetHandler{index: index}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/signs/{sign}/asset
func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name, resource, ok := signPath(r.URL.Path)
	if !ok || resource != "asset" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	file, found := h.index.Lookup(name)
	if !found {
		writeError(w, http.StatusNotFound, "Asset not found")
		return
	}
	http.ServeFile(w, r, file)
}
