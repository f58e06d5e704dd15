package crud

import "net/url"

// Request carries the already-routed inbound operation call: declared path
// parameters extracted by the transport layer, the raw query-string mapping,
// the decoded body for create/update, and the resolved current user.
type Request struct {
	PathParams map[string]string
	Query      url.Values
	Body       map[string]any
	UserID     int64
}

// PathParam returns the named parameter or the empty string.
func (r *Request) PathParam(name string) string {
	if r.PathParams == nil {
		return ""
	}
	return r.PathParams[name]
}
