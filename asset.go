package colorpages

import (
	"errors"
	"fmt"
	"hash/fnv"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// AssetPrefix is the URL prefix the Handler serves static assets under.
const AssetPrefix = "/_assets"

// Names of the static assets the default layout links to.
const (
	stylesheetAsset = "app.css"
	liveScriptAsset = "live.js"
)

// assetInfo holds a single static asset.
type assetInfo struct {
	content     []byte
	contentType string
	versionHash uint64 // FNV-1a hash of the content
	servePath   string // Calculated path like "/_assets/app.abcdef1234567890.css"
}

// assetRegistry serves static assets under versioned paths, so they can be cached forever.
// Every asset is also reachable by its plain name.
type assetRegistry struct {
	mu sync.RWMutex

	servePrefix string

	// Key: logical asset name (e.g., "app.css").
	assets map[string]*assetInfo

	// Maps the full serve path back to the logical asset name.
	servePathToName map[string]string
}

func newAssetRegistry(servePrefix string) *assetRegistry {
	if !strings.HasPrefix(servePrefix, "/") {
		servePrefix = "/" + servePrefix
	}

	return &assetRegistry{
		servePrefix:     strings.TrimSuffix(servePrefix, "/"),
		assets:          make(map[string]*assetInfo),
		servePathToName: make(map[string]string),
	}
}

// AddAsset registers content under name, replacing a previous version.
func (r *assetRegistry) AddAsset(name string, content []byte) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid asset name %q", name)
	}

	hasher := fnv.New64a()
	if _, err := hasher.Write(content); err != nil {
		return fmt.Errorf("hash content for %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	baseName := strings.TrimSuffix(name, ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ai := &assetInfo{
		content:     content,
		contentType: contentType,
		versionHash: hasher.Sum64(),
	}
	ai.servePath = fmt.Sprintf("%s/%s.%016x%s", r.servePrefix, baseName, ai.versionHash, ext)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.assets[name]; ok {
		delete(r.servePathToName, old.servePath)
	}

	r.assets[name] = ai
	r.servePathToName[ai.servePath] = name
	r.servePathToName[r.servePrefix+"/"+name] = name

	return nil
}

// AddFromFS registers the named files of fsys. Missing files are skipped.
func (r *assetRegistry) AddFromFS(fsys fs.FS, names ...string) error {
	for _, name := range names {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("read asset %s: %w", name, err)
		}
		if err := r.AddAsset(path.Base(name), content); err != nil {
			return err
		}
	}
	return nil
}

// AssetPath returns the versioned path of the named asset, or "" if it is unknown.
func (r *assetRegistry) AssetPath(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if ai, ok := r.assets[name]; ok {
		return ai.servePath
	}
	return ""
}

// ServeAsset serves the request if its path names a registered asset. It reports whether
// the request was handled.
func (r *assetRegistry) ServeAsset(w http.ResponseWriter, req *http.Request) (bool, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false, nil
	}

	requestPath := req.URL.Path
	if !strings.HasPrefix(requestPath, r.servePrefix+"/") {
		return false, nil
	}

	r.mu.RLock()
	var ai *assetInfo
	name, ok := r.servePathToName[requestPath]
	if ok {
		ai = r.assets[name]
	}
	r.mu.RUnlock()

	if ai == nil {
		return false, nil
	}

	versionHex := fmt.Sprintf("%016x", ai.versionHash)

	w.Header().Set("Content-Type", ai.contentType)
	w.Header().Set("ETag", `"`+versionHex+`"`)
	if requestPath == ai.servePath {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}

	if match := req.Header.Get("If-None-Match"); match != "" && strings.Contains(match, versionHex) {
		w.WriteHeader(http.StatusNotModified)
		return true, nil
	}

	w.WriteHeader(http.StatusOK)
	if req.Method == http.MethodHead {
		return true, nil
	}

	if _, err := w.Write(ai.content); err != nil {
		return true, fmt.Errorf("write asset content %s: %w", requestPath, err)
	}

	return true, nil
}
