// Package relations carries the wire types of the relation webhook: the
// events an external dependency provider pushes when a connection is
// resolved, changed or removed.
package relations

// Event is the payload of a relation change. Which fields are required
// depends on the relation kind in the request path:
//
//   - "db", "opensearch": Endpoints, Username, Password
//     (plus TLSCA for opensearch)
//   - "kafka": BootstrapServer, Username, Password
//
// Endpoints and BootstrapServer may carry comma-separated alternatives;
// only the first entry is used.
type Event struct {
	Endpoints       string `json:"endpoints,omitempty"`
	BootstrapServer string `json:"bootstrap-server,omitempty"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	TLSCA           string `json:"tls-ca,omitempty"`
}
