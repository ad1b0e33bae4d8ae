package main

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"swapPipeline/internal/amm"
	"swapPipeline/internal/config"
	"swapPipeline/internal/model"
)

// withAMM loads AMM config, opens a session, and runs fn.
func withAMM(cmd *cobra.Command, fn func(ctx context.Context, cfg config.AMMConfig, s *session) error) error {
	cfg, err := config.LoadAMM(configFile(cmd), cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	s, err := openSession(ctx, cfg.ClientConfig, logger)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, cfg, s)
}

func addContractFlags(fs *pflag.FlagSet) {
	fs.String("quoter", "", "quoter contract (default: mainnet)")
	fs.String("router", "", "swap router contract (default: mainnet)")
	fs.String("factory", "", "pool factory contract (default: mainnet)")
	fs.String("weth", "", "wrapped native token (default: mainnet WETH)")
	fs.String("dai", "", "DAI token (default: mainnet)")
}

func addPairFlags(fs *pflag.FlagSet) {
	fs.String("token-in", "", "token sold")
	fs.String("token-out", "", "token bought")
	fs.Uint32("fee", amm.DefaultFee, "pool fee tier in hundredths of a bip")
	fs.String("amount-in", "", "amount sold in base units")
	fs.String("sqrt-price-limit", "", "sqrtPriceX96 limit, 0 for none")
}

type pairArgs struct {
	tokenIn, tokenOut common.Address
	fee               uint32
	amountIn          *big.Int
	limit             *big.Int
}

func readPair(fs *pflag.FlagSet, needTokenIn bool) (pairArgs, error) {
	var p pairArgs
	var err error
	if needTokenIn {
		if p.tokenIn, err = requiredAddress(fs, "token-in"); err != nil {
			return p, err
		}
	}
	if p.tokenOut, err = requiredAddress(fs, "token-out"); err != nil {
		return p, err
	}
	if p.amountIn, err = requiredAmount(fs, "amount-in"); err != nil {
		return p, err
	}
	if p.limit, err = optionalAmount(fs, "sqrt-price-limit"); err != nil {
		return p, err
	}
	p.fee, _ = fs.GetUint32("fee")
	if err := amm.CheckFee(p.fee); err != nil {
		return p, err
	}
	if err := amm.CheckPriceLimit(p.limit); err != nil {
		return p, err
	}
	return p, nil
}

func callerFromConfig(cfg config.AMMConfig) common.Address {
	key, err := loadKey(cfg.PrivateKey)
	if err != nil {
		return common.Address{}
	}
	return addressOf(key)
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote an exact-input swap and check it against the price limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := readPair(cmd.Flags(), true)
			if err != nil {
				return err
			}
			return withAMM(cmd, func(ctx context.Context, cfg config.AMMConfig, s *session) error {
				caller := callerFromConfig(cfg)
				tokens := amm.NewTokens(s.ledger, caller, s.logger)
				for _, token := range []common.Address{pair.tokenIn, pair.tokenOut} {
					if _, err := tokens.TokenMeta(ctx, token); err != nil {
						s.logger.Debug("token metadata unavailable", zap.String("token", token.Hex()), zap.Error(err))
					}
				}
				engine := amm.NewQuoteEngine(s.ledger, cfg.Contracts, caller, s.metrics, s.logger).WithTokens(tokens)
				quote, err := engine.Quote(ctx, amm.QuoteRequest{
					TokenIn:        pair.tokenIn,
					TokenOut:       pair.tokenOut,
					Fee:            pair.fee,
					AmountIn:       pair.amountIn,
					SqrtPriceLimit: pair.limit,
				})
				if err != nil {
					return err
				}
				out := model.SwapQuote{
					TokenIn:      pair.tokenIn.Hex(),
					TokenOut:     pair.tokenOut.Hex(),
					Fee:          pair.fee,
					AmountIn:     pair.amountIn.String(),
					AmountOut:    quote.AmountOut.String(),
					AmountOutMin: quote.AmountOutMin.String(),
					SqrtPriceX96: bigOrZero(pair.limit).String(),
				}
				return printJSON(out)
			})
		},
	}
	addPairFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}

func newMinOutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "min-out",
		Short: "Derive the minimum acceptable output from a sqrt price limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pair, err := readPair(cmd.Flags(), true)
			if err != nil {
				return err
			}
			return withAMM(cmd, func(ctx context.Context, cfg config.AMMConfig, s *session) error {
				engine := amm.NewQuoteEngine(s.ledger, cfg.Contracts, callerFromConfig(cfg), s.metrics, s.logger)
				amountOutMin, err := engine.MinimumAmountOut(ctx, pair.limit, pair.amountIn, pair.tokenIn, pair.tokenOut, pair.fee)
				if err != nil {
					return err
				}
				fmt.Println(amountOutMin.String())
				return nil
			})
		},
	}
	addPairFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Resolve a pool and print its token order and current price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokenA, err := requiredAddress(cmd.Flags(), "token-a")
			if err != nil {
				return err
			}
			tokenB, err := requiredAddress(cmd.Flags(), "token-b")
			if err != nil {
				return err
			}
			fee, _ := cmd.Flags().GetUint32("fee")
			return withAMM(cmd, func(ctx context.Context, cfg config.AMMConfig, s *session) error {
				pools := amm.NewPools(s.ledger, cfg.Contracts, callerFromConfig(cfg), s.logger)
				addr, err := pools.PoolAddress(ctx, tokenA, tokenB, fee)
				if err != nil {
					return err
				}
				token0, token1, err := pools.PoolTokens(ctx, addr)
				if err != nil {
					return err
				}
				sqrtPrice, err := pools.SqrtPrice(ctx, addr)
				if err != nil {
					return err
				}
				if fee == 0 {
					fee = amm.DefaultFee
				}
				return printJSON(model.PoolMeta{
					Address:      addr.Hex(),
					Token0:       token0.Hex(),
					Token1:       token1.Hex(),
					Fee:          fee,
					SqrtPriceX96: sqrtPrice.String(),
					Price:        strconv.FormatFloat(amm.DecodeSqrtPrice(sqrtPrice), 'g', -1, 64),
				})
			})
		},
	}
	cmd.Flags().String("token-a", "", "one pool token")
	cmd.Flags().String("token-b", "", "the other pool token")
	cmd.Flags().Uint32("fee", amm.DefaultFee, "pool fee tier")
	addContractFlags(cmd.Flags())
	return cmd
}

func newSwapCmd(nativeIn bool) *cobra.Command {
	use, short := "swap", "Swap an exact amount of one token for another"
	if nativeIn {
		use, short = "swap-eth", "Swap an exact amount of native currency for a token"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			pair, err := readPair(fs, !nativeIn)
			if err != nil {
				return err
			}
			deadline, err := optionalAmount(fs, "deadline")
			if err != nil {
				return err
			}
			amountOutMin, err := optionalAmount(fs, "amount-out-min")
			if err != nil {
				return err
			}
			opts, err := sendOptions(fs)
			if err != nil {
				return err
			}
			wait, _ := fs.GetDuration("wait")

			return withAMM(cmd, func(ctx context.Context, cfg config.AMMConfig, s *session) error {
				key, err := loadKey(cfg.PrivateKey)
				if err != nil {
					return err
				}
				req := amm.SwapRequest{
					TokenIn:        pair.tokenIn,
					TokenOut:       pair.tokenOut,
					Fee:            pair.fee,
					AmountIn:       pair.amountIn,
					Deadline:       deadline,
					AmountOutMin:   amountOutMin,
					SqrtPriceLimit: pair.limit,
					Options:        opts,
					Wait:           wait,
				}
				executor := amm.NewExecutor(s.ledger, cfg.Contracts, s.metrics, s.logger)
				swap := executor.Swap
				if nativeIn {
					swap = executor.SwapETHIn
				}
				hash, err := swap(ctx, key, req)
				if err != nil {
					return err
				}
				s.logger.Info("swap submitted", zap.String("tx_hash", hash.Hex()), zap.Duration("wait", wait))
				fmt.Println(hash.Hex())
				return nil
			})
		},
	}
	addPairFlags(cmd.Flags())
	if nativeIn {
		_ = cmd.Flags().MarkHidden("token-in")
	}
	cmd.Flags().String("deadline", "", "unix deadline (default: latest block + 10m)")
	cmd.Flags().String("amount-out-min", "", "minimum output (default: derived from the price limit)")
	addSendFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
