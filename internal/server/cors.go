package server

import "net/http"

// CORSOptions lists the origins allowed to call the endpoint. "*" allows
// any origin. An empty list disables CORS headers.
type CORSOptions struct {
	AllowedOrigins []string
}

func (o CORSOptions) enabled() bool { return len(o.AllowedOrigins) > 0 }

// allow returns the Access-Control-Allow-Origin value for origin, or "".
func (o CORSOptions) allow(origin string) string {
	if origin == "" {
		return ""
	}
	match := ""
	for _, allowed := range o.AllowedOrigins {
		switch allowed {
		case "*":
			return "*"
		case origin:
			match = origin
		}
	}
	return match
}

func (o CORSOptions) setHeaders(w http.ResponseWriter, r *http.Request) {
	allowed := o.allow(r.Header.Get("Origin"))
	if allowed == "" {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		h.Add("Vary", "Origin")
	}
	if r.Method != http.MethodOptions {
		return
	}
	if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
		h.Set("Access-Control-Allow-Headers", req)
	}
	h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
}
