package server

import (
	"net/url"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// documentKey identifies a document by the path of its URI. URIs without a
// path are used as they are.
func documentKey(uri protocol.DocumentUri) string {
	u, err := url.Parse(uri)
	if err != nil || u.Path == "" {
		return uri
	}
	return u.Path
}
