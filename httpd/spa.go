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
	"bytes"
	"path/filepath"
)

// bootstrapHTML is the minimal skeleton returned for the first request to a
// dynamic-mode page. The inline script, running in the browser, refetches
// the original request-target with the SPA marker header and swaps the
// returned fragment into <main>.
const bootstrapHTML = `<!DOCTYPE html>
<html>
<head>
<script name="es-bootstrap-dynamic">
(function () {
  var warned = false;
  var warnTimer = setTimeout(function () {
    warned = true;
    console.warn("es-bootstrap-dynamic: page is taking longer than expected to load");
  }, 8000);

  fetch(window.location.href, {
    headers: { "X-Requested-With": "SPA" }
  }).then(function (resp) {
    return resp.text();
  }).then(function (html) {
    clearTimeout(warnTimer);
    var doc = new DOMParser().parseFromString(html, "text/html");
    var incoming = doc.querySelector("main");
    var current = document.querySelector("main");
    if (incoming && current) {
      current.replaceWith(incoming);
    }
  }).catch(function (err) {
    clearTimeout(warnTimer);
    console.error("es-bootstrap-dynamic: failed to load", err);
  });
})();
</script>
</head>
<body><main></main></body>
</html>
`

// newFilesystemHandler builds the ANY-method handler bound by
// Server.BindFilesystem: only GET is served (others produce 405); in
// ServerModeDynamic, extensionless or ".html" URLs go through the SPA
// handler, everything else is served as a static asset.
func newFilesystemHandler(fs *HttpFilesystem, mode ServerMode) HandlerFunc {
	return func(req *Request) *Response {
		if req.Method != MethodGET {
			return ErrorResponse(StatusMethodNotAllowed)
		}

		if mode == ServerModeDynamic && isDynamicURL(req.URL) {
			return handleDynamic(fs, req)
		}

		return handleStatic(fs, req)
	}
}

// isDynamicURL reports whether url has no extension or ends in ".html".
func isDynamicURL(url string) bool {
	path := normalizeURLPath(url)
	ext := filepath.Ext(path)
	return ext == "" || ext == ".html"
}

func handleStatic(fs *HttpFilesystem, req *Request) *Response {
	id := fs.FindFile(req.URL)
	if id == 0 {
		return ErrorResponse(StatusNotFound)
	}

	entry, _ := fs.Entry(id)

	data, e := fs.Load(id)
	if e != nil {
		return ErrorResponse(StatusInternalServerError)
	}

	if len(data) == 0 {
		return NewResponse(StatusNoContent, nil)
	}

	resp := NewResponse(StatusOK, data)
	resp.SetHeader("Content-Type", contentTypeFor(entry.Extension))

	return resp
}

func handleDynamic(fs *HttpFilesystem, req *Request) *Response {
	if !req.HasRequestedWithSPA() {
		resp := NewResponse(StatusOK, []byte(bootstrapHTML))
		resp.SetHeader("Content-Type", "text/html; charset=utf-8")
		return resp
	}

	id := fs.FindFile(req.URL)
	if id == 0 {
		return ErrorResponse(StatusNotFound)
	}

	data, e := fs.Load(id)
	if e != nil {
		return ErrorResponse(StatusInternalServerError)
	}

	frag, ok := extractMainFragment(data)
	if !ok {
		return ErrorResponse(StatusInternalServerError)
	}

	resp := NewResponse(StatusOK, frag)
	resp.SetHeader("Content-Type", "text/html; charset=utf-8")

	return resp
}

// extractMainFragment finds "<body ...>...</body>" in html, captures the
// body tag's attributes, and rewrites it as "<main ...>...</main>" -- the
// fragment the bootstrap script's DOMParser call consumes.
func extractMainFragment(html []byte) ([]byte, bool) {
	open := bytes.Index(html, []byte("<body"))
	if open < 0 {
		return nil, false
	}

	tagEnd := bytes.IndexByte(html[open:], '>')
	if tagEnd < 0 {
		return nil, false
	}
	tagEnd += open

	attrs := bytes.TrimSpace(html[open+len("<body") : tagEnd])
	attrs = bytes.TrimSuffix(attrs, []byte("/"))

	close := bytes.Index(html[tagEnd:], []byte("</body>"))
	if close < 0 {
		return nil, false
	}
	close += tagEnd

	inner := html[tagEnd+1 : close]

	var out bytes.Buffer
	out.WriteString("<main")
	if len(attrs) > 0 {
		out.WriteByte(' ')
		out.Write(attrs)
	}
	out.WriteByte('>')
	out.Write(inner)
	out.WriteString("</main>")

	return out.Bytes(), true
}
