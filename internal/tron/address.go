package tron

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
)

// AddressVersion prefixes every mainnet account in both encodings.
const AddressVersion byte = 0x41

// ToBase58 renders an EVM address in base58check form (T...).
func ToBase58(addr common.Address) string {
	return base58.CheckEncode(addr.Bytes(), AddressVersion)
}

// FromBase58 parses a base58check address and returns its EVM form.
func FromBase58(s string) (common.Address, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("decode base58 address %q: %w", s, err)
	}
	if version != AddressVersion {
		return common.Address{}, fmt.Errorf("decode base58 address %q: unexpected version 0x%02x", s, version)
	}
	if len(payload) != common.AddressLength {
		return common.Address{}, fmt.Errorf("decode base58 address %q: payload is %d bytes", s, len(payload))
	}
	return common.BytesToAddress(payload), nil
}

// ToHex renders an address the way the wallet API expects it in
// non-visible mode: 41 followed by the 20 address bytes.
func ToHex(addr common.Address) string {
	return hex.EncodeToString(append([]byte{AddressVersion}, addr.Bytes()...))
}

// ParseAddress accepts either a base58check or a 0x-prefixed hex address.
func ParseAddress(s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return FromBase58(s)
}
