package txpipeline

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapPipeline/internal/chainerr"
	"swapPipeline/internal/fees"
)

func validateUnsigned(tx *types.Transaction) error {
	if tx.ChainId() == nil || tx.ChainId().Sign() <= 0 {
		return chainerr.BadInput("about to send invalid tx: missing chain id")
	}
	if tx.To() == nil {
		return chainerr.BadInput("about to send invalid tx: missing destination")
	}
	if tx.Gas() < fees.IntrinsicGas {
		return chainerr.BadInput("about to send invalid tx: gas limit %d below intrinsic gas", tx.Gas())
	}
	for name, v := range map[string]*big.Int{
		"max fee":      tx.GasFeeCap(),
		"priority fee": tx.GasTipCap(),
		"value":        tx.Value(),
	} {
		if v.Sign() < 0 || v.BitLen() > 256 {
			return chainerr.BadInput("about to send invalid tx: %s out of range", name)
		}
	}
	if tx.GasFeeCap().Cmp(tx.GasTipCap()) < 0 {
		return chainerr.BadInput("about to send invalid tx: max fee %s below priority fee %s", tx.GasFeeCap(), tx.GasTipCap())
	}
	return nil
}

func validateSigned(tx *types.Transaction, signer types.Signer, from common.Address) error {
	if err := validateUnsigned(tx); err != nil {
		return err
	}
	_, r, s := tx.RawSignatureValues()
	if r == nil || s == nil || r.Sign() == 0 || s.Sign() == 0 {
		return chainerr.BadInput("about to send invalid tx: missing signature")
	}
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return chainerr.BadInput("about to send invalid tx: %v", err)
	}
	if sender != from {
		return chainerr.BadInput("about to send invalid tx: signed by %s, expected %s", sender.Hex(), from.Hex())
	}
	return nil
}
