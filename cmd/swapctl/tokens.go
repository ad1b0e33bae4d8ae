package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"swapPipeline/internal/amm"
	"swapPipeline/internal/config"
)

func newApproveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Grant a spender an unlimited token allowance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			token, err := requiredAddress(fs, "token")
			if err != nil {
				return err
			}
			opts, err := sendOptions(fs)
			if err != nil {
				return err
			}
			wait, _ := fs.GetDuration("wait")
			force, _ := fs.GetBool("force")

			return withAMM(cmd, func(ctx context.Context, cfg config.AMMConfig, s *session) error {
				key, err := loadKey(cfg.PrivateKey)
				if err != nil {
					return err
				}
				spender := cfg.Contracts.Router
				if fs.Changed("spender") {
					if spender, err = requiredAddress(fs, "spender"); err != nil {
						return err
					}
				}
				owner := addressOf(key)
				tokens := amm.NewTokens(s.ledger, owner, s.logger)
				if !force {
					approved, err := tokens.IsApproved(ctx, token, owner, spender)
					if err != nil {
						return err
					}
					if approved {
						fmt.Println("already approved")
						return nil
					}
				}
				hash, err := tokens.Approve(ctx, key, token, spender, opts, wait)
				if err != nil {
					return err
				}
				fmt.Println(hash.Hex())
				return nil
			})
		},
	}
	cmd.Flags().String("token", "", "token to approve")
	cmd.Flags().String("spender", "", "spender (default: the swap router)")
	cmd.Flags().Bool("force", false, "send the approval even when an allowance exists")
	addSendFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}

func newWrapCmd(wrap bool) *cobra.Command {
	use, short := "wrap", "Deposit native currency into the wrapped-native contract"
	if !wrap {
		use, short = "unwrap", "Withdraw wrapped-native back to native currency"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			amount, err := requiredAmount(fs, "amount")
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
				tokens := amm.NewTokens(s.ledger, addressOf(key), s.logger)
				op := tokens.Wrap
				if !wrap {
					op = tokens.Unwrap
				}
				hash, err := op(ctx, key, cfg.Contracts.WETH, amount, opts, wait)
				if err != nil {
					return err
				}
				fmt.Println(hash.Hex())
				return nil
			})
		},
	}
	cmd.Flags().String("amount", "", "amount in base units")
	addSendFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			token, err := requiredAddress(fs, "token")
			if err != nil {
				return err
			}
			to, err := requiredAddress(fs, "to")
			if err != nil {
				return err
			}
			amount, err := requiredAmount(fs, "amount")
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
				tokens := amm.NewTokens(s.ledger, addressOf(key), s.logger)
				hash, err := tokens.Transfer(ctx, key, token, to, amount, opts, wait)
				if err != nil {
					return err
				}
				fmt.Println(hash.Hex())
				return nil
			})
		},
	}
	cmd.Flags().String("token", "", "token contract")
	cmd.Flags().String("to", "", "recipient")
	cmd.Flags().String("amount", "", "amount in base units")
	addSendFlags(cmd.Flags())
	addContractFlags(cmd.Flags())
	return cmd
}
