package sign

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// assetExtensions lists the reference image formats picked up from a manifest directory.
var assetExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AssetIndex maps normalized sign identifiers to reference image paths.
// It is built once and is read-only afterwards.
type AssetIndex struct {
	byKey map[string]string
}

// NewAssetIndex builds an index from a list of file paths.
// Files whose extension is not a supported image format are ignored.
// When two files normalize to the same key, the lexically first path wins.
func NewAssetIndex(paths []string) *AssetIndex {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	idx := &AssetIndex{byKey: make(map[string]string, len(sorted))}
	for _, p := range sorted {
		ext := strings.ToLower(filepath.Ext(p))
		if !assetExtensions[ext] {
			continue
		}

		key := Normalize(strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)))
		if key == "" {
			continue
		}
		if _, exists := idx.byKey[key]; !exists {
			idx.byKey[key] = p
		}
	}

	return idx
}

// LoadAssetIndex builds an index from the image files in dir.
// A missing directory yields an empty index.
func LoadAssetIndex(dir string) (*AssetIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return NewAssetIndex(nil), nil
		}
		return nil, err
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	return NewAssetIndex(paths), nil
}

// Len returns the number of indexed assets.
func (a *AssetIndex) Len() int {
	return len(a.byKey)
}

// Lookup resolves a sign name to an asset path.
//
// Candidates are tried in order: the full normalized name, its trailing
// digits ("number1" -> "1"), then its trailing character ("lettera" -> "a").
func (a *AssetIndex) Lookup(name string) (string, bool) {
	for _, key := range candidates(Normalize(name)) {
		if p, ok := a.byKey[key]; ok {
			return p, true
		}
	}
	return "", false
}

// candidates returns the lookup keys for a normalized name.
func candidates(key string) []string {
	if key == "" {
		return nil
	}

	out := []string{key}

	i := len(key)
	for i > 0 && key[i-1] >= '0' && key[i-1] <= '9' {
		i--
	}
	if i < len(key) && i > 0 {
		out = append(out, key[i:])
	}

	if last := key[len(key)-1:]; last != key {
		out = append(out, last)
	}

	return out
}
