package assets

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/kikiluvv/reelcannon/internal/render"
)

// Default file names for the logical assets used by the templates
var defaultFiles = map[string]string{
	render.AssetBrandBar:      "brand_bar.png",
	render.AssetWatermarkLogo: "watermark_logo.png",
}

// Registry maps logical asset names to files inside an assets directory
type Registry struct {
	dir    string
	assets map[string]string
}

// NewRegistry creates an empty registry rooted at dir
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:    dir,
		assets: make(map[string]string),
	}
}

// DefaultRegistry creates a registry with the template assets registered
// under their default file names, then applies overrides
func DefaultRegistry(dir string, overrides map[string]string) *Registry {
	r := NewRegistry(dir)
	for name, file := range defaultFiles {
		r.Register(name, file)
	}
	for name, file := range overrides {
		r.Register(name, file)
	}
	return r
}

// Register adds an asset to the registry. Relative file names are resolved
// against the registry directory.
func (r *Registry) Register(name, file string) {
	r.assets[name] = file
}

// Get retrieves the expected path of an asset by name
func (r *Registry) Get(name string) (string, bool) {
	file, ok := r.assets[name]
	if !ok {
		return "", false
	}
	if filepath.IsAbs(file) {
		return file, true
	}
	return filepath.Join(r.dir, file), true
}

// List returns all registered asset names in sorted order
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.assets))
	for name := range r.assets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve reports whether the asset's file exists. It never fails: an
// unknown name or a missing file is reported as absent.
func (r *Registry) Resolve(name string) render.Asset {
	path, ok := r.Get(name)
	if !ok {
		return render.Asset{}
	}
	info, err := os.Stat(path)
	return render.Asset{
		Exists: err == nil && info.Mode().IsRegular(),
		Path:   path,
	}
}

// ResolveAll checks every registered asset once and returns the snapshot
// handed to the graph builder
func (r *Registry) ResolveAll() render.AssetAvailability {
	avail := make(render.AssetAvailability, len(r.assets))
	for _, name := range r.List() {
		avail[name] = r.Resolve(name)
	}
	return avail
}
