package http

import (
	"io"
	"net/http"
	"time"
)

// ProxyHandler performs a server-side fetch of a URL and streams the body
// back with the upstream content type. It exists so browser clients can load
// remote content past cross-origin restrictions.
type ProxyHandler struct {
	client  *http.Client
	maxBody int64
}

func NewProxyHandler(timeout time.Duration, maxBody int64) *ProxyHandler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxBody <= 0 {
		maxBody = 64 << 20
	}
	return &ProxyHandler{
		client:  &http.Client{Timeout: timeout},
		maxBody: maxBody,
	}
}

func (p *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		http.Error(w, "invalid url: "+err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		http.Error(w, "upstream fetch failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Surface the upstream status code and statusText.
		http.Error(w, "upstream responded "+resp.Status, resp.StatusCode)
		return
	}

	if resp.ContentLength > p.maxBody {
		http.Error(w, "upstream body too large", http.StatusBadGateway)
		return
	}

	if ctype := resp.Header.Get("Content-Type"); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	}
	n, err := io.Copy(w, io.LimitReader(resp.Body, p.maxBody))
	if err == nil && n == p.maxBody {
		// Unknown-length upstream hit the cap. The status is already out, so
		// abort the connection rather than pass off a truncated body as
		// complete.
		if _, err := io.CopyN(io.Discard, resp.Body, 1); err != io.EOF {
			panic(http.ErrAbortHandler)
		}
	}
}
