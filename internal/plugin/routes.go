package plugin

import (
	"net/http"
	"path"
	"strings"
)

// RoutePrefix is the namespace every plugin route lives under.
const RoutePrefix = "/plugin/"

// namespacedRoutes is the route manager handed to a plugin's
// RegisterRoutes. Every path it receives is rewritten under
// /plugin/<id>/, whatever the plugin requested, so plugins cannot
// collide with each other or with core routes.
type namespacedRoutes struct {
	mux      *http.ServeMux
	pluginID string
}

func newNamespacedRoutes(mux *http.ServeMux, pluginID string) *namespacedRoutes {
	return &namespacedRoutes{mux: mux, pluginID: pluginID}
}

// namespace rewrites a requested path under the plugin's prefix.
// "widgets" and "/widgets" produce the identical namespaced path.
func (n *namespacedRoutes) namespace(p string) string {
	p = strings.TrimPrefix(p, "/")
	full := RoutePrefix + n.pluginID + "/" + p
	return path.Clean(full)
}

func (n *namespacedRoutes) Handle(p string, handler http.Handler) {
	n.mux.Handle(n.namespace(p), handler)
}

func (n *namespacedRoutes) HandleFunc(p string, handler func(http.ResponseWriter, *http.Request)) {
	n.mux.HandleFunc(n.namespace(p), handler)
}
