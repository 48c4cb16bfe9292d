package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins allowed to make cross-origin requests.
	// Empty, or the single entry "*", allows every origin.
	AllowOrigins []string

	// AllowMethods lists the HTTP methods clients may use. Defaults to
	// "GET, POST, PUT, DELETE, OPTIONS" when empty.
	AllowMethods []string

	// AllowHeaders lists the request headers clients may send. When empty,
	// the preflight's Access-Control-Request-Headers value is echoed back.
	AllowHeaders []string

	// ExposeHeaders lists response headers the browser may read.
	ExposeHeaders []string

	// AllowCredentials permits cookies and auth headers on cross-origin
	// requests. Incompatible with the wildcard origin, so enabling it forces
	// specific-origin matching.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header; negative sends "0".
	MaxAge int
}

// cors holds the precomputed header values so the hot path only does a map
// lookup and header writes.
type cors struct {
	allowAll      bool
	origins       map[string]string // lowercased origin -> original casing
	methods       string
	headers       string
	exposeHeaders string
	credentials   bool
	maxAge        string
}

// CORS returns a middleware that answers preflight requests and sets CORS
// headers on actual requests. Origin matching is case-insensitive with the
// configured casing echoed back, and Vary headers are set so shared caches
// do not serve one origin's response to another.
func CORS(cfg CORSConfig) Middleware {
	c := &cors{
		allowAll:      len(cfg.AllowOrigins) == 0,
		origins:       make(map[string]string, len(cfg.AllowOrigins)),
		methods:       strings.Join(cfg.AllowMethods, ", "),
		headers:       strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
		credentials:   cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			c.allowAll = true
			break
		}
		c.origins[strings.ToLower(o)] = o
	}
	// The wildcard origin is forbidden together with credentials; fall back
	// to echoing the specific origin.
	if c.credentials {
		c.allowAll = false
	}
	if c.methods == "" {
		c.methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	switch {
	case cfg.MaxAge > 0:
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		c.maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.handle(w, r, next)
		})
	}
}

func (c *cors) handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Not a CORS request, but caches still need to vary on Origin.
		if !c.allowAll {
			w.Header().Add("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
		return
	}

	allowOrigin := c.match(origin)

	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		c.preflight(w, r, allowOrigin)
		return
	}

	if !c.allowAll {
		w.Header().Add("Vary", "Origin")
	}
	if allowOrigin != "" {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		if c.credentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if c.exposeHeaders != "" {
			w.Header().Set("Access-Control-Expose-Headers", c.exposeHeaders)
		}
	}
	next.ServeHTTP(w, r)
}

func (c *cors) preflight(w http.ResponseWriter, r *http.Request, allowOrigin string) {
	w.Header().Add("Vary", "Origin")
	w.Header().Add("Vary", "Access-Control-Request-Method")
	w.Header().Add("Vary", "Access-Control-Request-Headers")

	if allowOrigin == "" {
		// Disallowed origin: 204 with no CORS headers.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	w.Header().Set("Access-Control-Allow-Methods", c.methods)
	switch {
	case c.headers != "":
		w.Header().Set("Access-Control-Allow-Headers", c.headers)
	default:
		if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
			w.Header().Set("Access-Control-Allow-Headers", rh)
		}
	}
	if c.credentials {
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	if c.maxAge != "" {
		w.Header().Set("Access-Control-Max-Age", c.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

// match returns the Access-Control-Allow-Origin value for the request
// origin, or "" when the origin is not allowed.
func (c *cors) match(origin string) string {
	if c.allowAll {
		return "*"
	}
	return c.origins[strings.ToLower(origin)]
}
