package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/tron"
	"swapPipeline/internal/txpipeline"
)

// addSendFlags registers the fee overrides and --wait on a write command.
func addSendFlags(fs *pflag.FlagSet) {
	fs.String("max-fee", "", "max fee per gas in wei")
	fs.String("priority-fee", "", "priority fee per gas in wei")
	fs.Float64("max-fee-multiplier", 0, "max fee as a multiple of the base fee")
	fs.Uint64("gas-limit", 0, "explicit gas limit, skips estimation")
	fs.Float64("gas-limit-multiplier", 0, "scale the gas limit")
	fs.Uint64("nonce", 0, "explicit nonce")
	fs.Duration("wait", 0, "wait up to this long for inclusion")
}

// sendOptions builds SendOptions from the flags the user actually set.
func sendOptions(fs *pflag.FlagSet) (txpipeline.SendOptions, error) {
	var opts txpipeline.SendOptions
	if fs.Changed("max-fee") {
		v, _ := fs.GetString("max-fee")
		fee, err := parseAmount("max-fee", v)
		if err != nil {
			return opts, err
		}
		opts = opts.WithMaxFee(fee)
	}
	if fs.Changed("priority-fee") {
		v, _ := fs.GetString("priority-fee")
		fee, err := parseAmount("priority-fee", v)
		if err != nil {
			return opts, err
		}
		opts = opts.WithPriorityFee(fee)
	}
	if fs.Changed("max-fee-multiplier") {
		m, _ := fs.GetFloat64("max-fee-multiplier")
		opts = opts.WithMaxFeeMultiplier(m)
	}
	if fs.Changed("gas-limit") {
		limit, _ := fs.GetUint64("gas-limit")
		opts = opts.WithGasLimit(limit)
	}
	if fs.Changed("gas-limit-multiplier") {
		m, _ := fs.GetFloat64("gas-limit-multiplier")
		opts = opts.WithGasLimitMultiplier(m)
	}
	if fs.Changed("nonce") {
		nonce, _ := fs.GetUint64("nonce")
		opts = opts.WithNonce(nonce)
	}
	return opts, nil
}

// parseAmount reads a non-negative integer in decimal or 0x hex.
func parseAmount(name, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, chainerr.BadInput("%s is required", name)
	}
	v, ok := new(big.Int).SetString(raw, 0)
	if !ok || v.Sign() < 0 {
		return nil, chainerr.BadInput("invalid %s %q", name, raw)
	}
	return v, nil
}

// optionalAmount returns nil when the flag was not set.
func optionalAmount(fs *pflag.FlagSet, name string) (*big.Int, error) {
	if !fs.Changed(name) {
		return nil, nil
	}
	raw, _ := fs.GetString(name)
	return parseAmount(name, raw)
}

func requiredAmount(fs *pflag.FlagSet, name string) (*big.Int, error) {
	raw, _ := fs.GetString(name)
	return parseAmount(name, raw)
}

func requiredAddress(fs *pflag.FlagSet, name string) (common.Address, error) {
	raw, _ := fs.GetString(name)
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, chainerr.BadInput("--%s is required", name)
	}
	addr, err := tron.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return common.Address{}, chainerr.BadInput("invalid --%s: %v", name, err)
	}
	return addr, nil
}

func loadKey(raw string) (*ecdsa.PrivateKey, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return nil, chainerr.BadInput("private key is required (set SWAPCTL_PRIVATE_KEY)")
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, chainerr.BadInput("invalid private key: %v", err)
	}
	return key, nil
}

func addressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

func configFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
