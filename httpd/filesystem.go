/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package httpd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	liberr "github.com/nabbar/netagent/errors"
)

// fileEntry is one allowed-to-serve file discovered under the webroot.
type fileEntry struct {
	RelativePath string
	FullPath     string
	Extension    string
}

// HttpFilesystem holds a canonicalized webroot and the list of files it is
// willing to serve. File IDs are 1-based indices into that list; 0 always
// means "not found" -- the allowed list itself is the security boundary.
type HttpFilesystem struct {
	mu sync.RWMutex

	webroot string
	files   []fileEntry          // 1-based: files[0] is a placeholder
	byRel   map[string]int

	lastRefresh time.Time
}

// NewHttpFilesystem canonicalizes webroot and performs an initial RefreshFull.
func NewHttpFilesystem(webroot string) (*HttpFilesystem, liberr.Error) {
	abs, e := filepath.Abs(webroot)
	if e != nil {
		return nil, ErrorFilesystemWebrootInvalid.Error(e)
	}

	info, e := os.Stat(abs)
	if e != nil || !info.IsDir() {
		return nil, ErrorFilesystemWebrootInvalid.Error(e)
	}

	fs := &HttpFilesystem{
		webroot: abs,
		files:   []fileEntry{{}},
		byRel:   make(map[string]int),
	}

	if e := fs.RefreshFull(); e != nil {
		return nil, e
	}

	return fs, nil
}

// Webroot returns the canonicalized root directory.
func (fs *HttpFilesystem) Webroot() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	return fs.webroot
}

// RefreshFull rescans the webroot from scratch, rebuilding the allowed-files
// list. Symlinks that would resolve outside the webroot are excluded even
// though the allowed list is the primary boundary -- defense in depth.
func (fs *HttpFilesystem) RefreshFull() liberr.Error {
	fs.mu.RLock()
	root := fs.webroot
	fs.mu.RUnlock()

	var entries []fileEntry
	byRel := make(map[string]int)

	e := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		full, werr := filepath.EvalSymlinks(path)
		if werr != nil {
			full = path
		}
		if !strings.HasPrefix(full, root) {
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		id := len(entries) + 1
		entries = append(entries, fileEntry{
			RelativePath: rel,
			FullPath:     path,
			Extension:    strings.ToLower(filepath.Ext(path)),
		})
		byRel[rel] = id

		return nil
	})
	if e != nil {
		return ErrorFilesystemWebrootInvalid.Error(e)
	}

	fs.mu.Lock()
	fs.files = append([]fileEntry{{}}, entries...)
	fs.byRel = byRel
	fs.lastRefresh = time.Now()
	fs.mu.Unlock()

	return nil
}

// RefreshTimed rescans only if intervalSec has elapsed since the last
// refresh.
func (fs *HttpFilesystem) RefreshTimed(intervalSec float64) liberr.Error {
	fs.mu.RLock()
	due := time.Since(fs.lastRefresh).Seconds() >= intervalSec
	fs.mu.RUnlock()

	if !due {
		return nil
	}

	return fs.RefreshFull()
}

// FindFile normalizes url and matches it against the allowed-paths list,
// additionally trying "<url>/index.html" and "<url>/<lastDir>.html" for
// directory-shaped URLs. Returns 0 if nothing matches.
func (fs *HttpFilesystem) FindFile(url string) int {
	rel := normalizeURLPath(url)
	if rel == "" {
		rel = "index.html"
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if id, ok := fs.byRel[rel]; ok {
		return id
	}

	if id, ok := fs.byRel[rel+"/index.html"]; ok {
		return id
	}

	last := rel
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		last = rel[i+1:]
	}
	if last != "" {
		if id, ok := fs.byRel[rel+"/"+last+".html"]; ok {
			return id
		}
	}

	return 0
}

// Entry returns the fileEntry for id, or false if id is out of range.
func (fs *HttpFilesystem) Entry(id int) (fileEntry, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if id <= 0 || id >= len(fs.files) {
		return fileEntry{}, false
	}

	return fs.files[id], true
}

// Load reads the full contents of the file with the given id.
func (fs *HttpFilesystem) Load(id int) ([]byte, liberr.Error) {
	entry, ok := fs.Entry(id)
	if !ok {
		return nil, ErrorFilesystemFileNotFound.Error(nil)
	}

	b, e := os.ReadFile(entry.FullPath)
	if e != nil {
		return nil, ErrorFilesystemFileUnreadable.Error(e)
	}

	return b, nil
}

// normalizeURLPath strips the leading slash and any "." / ".." segments a
// request-target could otherwise smuggle in, per the filesystem contract's
// canonicalization requirement.
func normalizeURLPath(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}

	url = strings.TrimPrefix(url, "/")
	url = strings.TrimSuffix(url, "/")

	if url == "" {
		return ""
	}

	parts := strings.Split(url, "/")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "", ".", "..":
			continue
		default:
			clean = append(clean, p)
		}
	}

	return strings.Join(clean, "/")
}

// contentTypeFor maps a file extension to the response Content-Type.
// Unknown extensions default to text/plain.
func contentTypeFor(ext string) string {
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".png":
		return "image/png"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	default:
		return "text/plain"
	}
}
