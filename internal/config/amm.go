package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"swapPipeline/internal/amm"
	"swapPipeline/internal/tron"
)

// AMMConfig adds the contract deployment to ClientConfig.
type AMMConfig struct {
	ClientConfig
	Contracts amm.Contracts
}

// LoadAMM loads ClientConfig plus contract addresses, each defaulting to the
// production deployment.
func LoadAMM(cfgFile string, flags *pflag.FlagSet) (AMMConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return AMMConfig{}, err
	}
	client, err := clientConfig(v)
	if err != nil {
		return AMMConfig{}, err
	}

	contracts := amm.DefaultContracts()
	for _, field := range []struct {
		key  string
		addr *common.Address
	}{
		{key: "quoter", addr: &contracts.Quoter},
		{key: "router", addr: &contracts.Router},
		{key: "factory", addr: &contracts.Factory},
		{key: "weth", addr: &contracts.WETH},
		{key: "dai", addr: &contracts.DAI},
	} {
		if err := overrideAddress(v, field.key, field.addr); err != nil {
			return AMMConfig{}, err
		}
	}

	return AMMConfig{ClientConfig: client, Contracts: contracts}, nil
}

func overrideAddress(v *viper.Viper, key string, dst *common.Address) error {
	raw := v.GetString(key)
	if raw == "" {
		return nil
	}
	addr, err := tron.ParseAddress(raw)
	if err != nil {
		return fmt.Errorf("invalid %s address %q: %w", key, raw, err)
	}
	*dst = addr
	return nil
}
