package tron

import (
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAddressRoundTrip(t *testing.T) {
	const base58Addr = "TY5X9ocQACH9YGAyiK3WUxLcLw3t2ethnc"
	evm := common.HexToAddress("0xf2846a1e4dafaea38c1660a618277d67605bd2b5")

	got, err := FromBase58(base58Addr)
	if err != nil {
		t.Fatalf("FromBase58: %v", err)
	}
	if got != evm {
		t.Fatalf("FromBase58 = %s, want %s", got.Hex(), evm.Hex())
	}
	if enc := ToBase58(evm); enc != base58Addr {
		t.Fatalf("ToBase58 = %s, want %s", enc, base58Addr)
	}
}

func TestFromBase58RejectsBadChecksum(t *testing.T) {
	if _, err := FromBase58("TY5X9ocQACH9YGAyiK3WUxLcLw3t2ethnd"); err == nil {
		t.Fatalf("expected checksum error")
	}
}

func TestToHex(t *testing.T) {
	addr := common.HexToAddress("0xf2846a1e4dafaea38c1660a618277d67605bd2b5")
	if got, want := ToHex(addr), "41f2846a1e4dafaea38c1660a618277d67605bd2b5"; got != want {
		t.Fatalf("ToHex = %s, want %s", got, want)
	}
}

func TestParseAddress(t *testing.T) {
	want := common.HexToAddress("0xf2846a1e4dafaea38c1660a618277d67605bd2b5")
	for _, in := range []string{
		"0xf2846a1e4dafaea38c1660a618277d67605bd2b5",
		"TY5X9ocQACH9YGAyiK3WUxLcLw3t2ethnc",
	} {
		got, err := ParseAddress(in)
		if err != nil {
			t.Fatalf("ParseAddress(%s): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseAddress(%s) = %s, want %s", in, got.Hex(), want.Hex())
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		url     string
		ok      bool
		want    Endpoint
		headers map[string]string
	}{
		{
			url:     "https://api.trongrid.io/jsonrpc",
			ok:      true,
			want:    Endpoint{Base: "https://api.trongrid.io"},
			headers: map[string]string{},
		},
		{
			url:     "https://api.trongrid.io/jsonrpc/abc-123",
			ok:      true,
			want:    Endpoint{Base: "https://api.trongrid.io", APIKey: "abc-123"},
			headers: map[string]string{"TRON-PRO-API-KEY": "abc-123"},
		},
		{
			url:     "https://trx.getblock.io/mainnet/fullnode/jsonrpc/key",
			ok:      true,
			want:    Endpoint{Base: "https://trx.getblock.io/mainnet/fullnode", APIKey: "key"},
			headers: map[string]string{"x-api-key": "key"},
		},
		{
			url:     "https://nile.trongrid.io/jsonrpc/key",
			ok:      true,
			want:    Endpoint{Base: "https://nile.trongrid.io", APIKey: "key"},
			headers: map[string]string{},
		},
		{url: "https://eth.llamarpc.com"},
	}

	for _, tc := range cases {
		got, ok := ParseEndpoint(tc.url)
		if ok != tc.ok {
			t.Fatalf("ParseEndpoint(%s) ok = %v, want %v", tc.url, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if got != tc.want {
			t.Fatalf("ParseEndpoint(%s) = %+v, want %+v", tc.url, got, tc.want)
		}
		if h := got.Headers(); !reflect.DeepEqual(h, tc.headers) {
			t.Fatalf("Headers(%s) = %v, want %v", tc.url, h, tc.headers)
		}
		if rpc := got.JSONRPCURL(); rpc != tc.want.Base+"/jsonrpc" {
			t.Fatalf("JSONRPCURL = %s", rpc)
		}
	}
}
