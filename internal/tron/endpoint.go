package tron

import (
	"regexp"
	"strings"
)

const (
	TronGridURL = "https://api.trongrid.io"
	GetBlockURL = "https://trx.getblock.io/mainnet/fullnode"
)

var endpointPattern = regexp.MustCompile(`^(.*)/jsonrpc/?(.*)$`)

// Endpoint is a parsed alternate-ledger node URL.
type Endpoint struct {
	// Base is the wallet API root, e.g. https://api.trongrid.io.
	Base string
	// APIKey is the path segment after /jsonrpc/, if any.
	APIKey string
}

// ParseEndpoint reports whether url names an alternate-ledger node, that is
// any URL with a /jsonrpc path segment.
func ParseEndpoint(url string) (Endpoint, bool) {
	m := endpointPattern.FindStringSubmatch(url)
	if m == nil {
		return Endpoint{}, false
	}
	return Endpoint{Base: m[1], APIKey: m[2]}, true
}

// JSONRPCURL is the EVM-compatible read endpoint of the node.
func (e Endpoint) JSONRPCURL() string {
	return e.Base + "/jsonrpc"
}

// Headers returns the API-key header the provider expects. Unknown providers
// get no header even when a key is present.
func (e Endpoint) Headers() map[string]string {
	headers := make(map[string]string)
	if e.APIKey == "" {
		return headers
	}
	switch strings.TrimRight(e.Base, "/") {
	case TronGridURL:
		headers["TRON-PRO-API-KEY"] = e.APIKey
	case GetBlockURL:
		headers["x-api-key"] = e.APIKey
	}
	return headers
}
