package main

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"swapPipeline/internal/amm"
	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/tron"
)

func newSqrtPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqrt-price",
		Short: "Convert between prices and Q64.96 sqrt prices without touching the chain",
		Long: "Exactly one of --price, --amount0/--amount1, or --decode selects the conversion.\n" +
			"--tolerance scales the resulting sqrt price into a swap limit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			var (
				sqrtPrice *big.Int
				err       error
			)
			switch {
			case fs.Changed("decode"):
				raw, _ := fs.GetString("decode")
				if sqrtPrice, err = parseAmount("decode", raw); err != nil {
					return err
				}
			case fs.Changed("price"):
				price, _ := fs.GetFloat64("price")
				if sqrtPrice, err = amm.SqrtPriceFromPrice(price); err != nil {
					return err
				}
			case fs.Changed("amount0") || fs.Changed("amount1"):
				amount0, err := requiredAmount(fs, "amount0")
				if err != nil {
					return err
				}
				amount1, err := requiredAmount(fs, "amount1")
				if err != nil {
					return err
				}
				if sqrtPrice, err = amm.SqrtPriceFromAmounts(amount1, amount0); err != nil {
					return err
				}
			default:
				return chainerr.BadInput("one of --price, --amount0/--amount1, or --decode is required")
			}

			if fs.Changed("tolerance") {
				tolerance, _ := fs.GetFloat64("tolerance")
				zeroForOne, _ := fs.GetBool("zero-for-one")
				if sqrtPrice, err = amm.ScaleSqrtPrice(sqrtPrice, tolerance, zeroForOne); err != nil {
					return err
				}
			}

			return printJSON(struct {
				SqrtPriceX96 string  `json:"sqrt_price_x96"`
				Price        float64 `json:"price"`
			}{
				SqrtPriceX96: sqrtPrice.String(),
				Price:        amm.DecodeSqrtPrice(sqrtPrice),
			})
		},
	}
	cmd.Flags().Float64("price", 0, "token1 per token0, in base units")
	cmd.Flags().String("amount0", "", "reserve of token0")
	cmd.Flags().String("amount1", "", "reserve of token1")
	cmd.Flags().String("decode", "", "sqrt price to decode")
	cmd.Flags().Float64("tolerance", 0, "fractional slippage applied to the result")
	cmd.Flags().Bool("zero-for-one", false, "the swap sells token0 (limit moves down)")
	return cmd
}

func newTronAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tron-address <address>",
		Short: "Show an address in hex, base58check, and wallet-API form",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			raw := strings.TrimSpace(args[0])
			addr, err := tron.ParseAddress(raw)
			if err != nil {
				// 41-prefixed wallet-API form.
				if len(raw) == 2*(common.AddressLength+1) && strings.HasPrefix(raw, "41") {
					addr = common.HexToAddress(raw[2:])
				} else {
					return chainerr.BadInput("parse address %q: %v", raw, err)
				}
			}
			return printJSON(struct {
				Hex    string `json:"hex"`
				Base58 string `json:"base58"`
				Wallet string `json:"wallet"`
			}{
				Hex:    addr.Hex(),
				Base58: tron.ToBase58(addr),
				Wallet: tron.ToHex(addr),
			})
		},
	}
}
