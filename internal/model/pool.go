package model

// PoolMeta describes a concentrated-liquidity pool as the CLI prints it.
type PoolMeta struct {
	Address      string `json:"address"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
	Fee          uint32 `json:"fee"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	// Price is token1 per token0 in base units.
	Price string `json:"price,omitempty"`
}

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}

// SwapQuote is a quoted exact-input swap.
type SwapQuote struct {
	TokenIn      string `json:"token_in"`
	TokenOut     string `json:"token_out"`
	Fee          uint32 `json:"fee"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	AmountOutMin string `json:"amount_out_min,omitempty"`
	SqrtPriceX96 string `json:"sqrt_price_limit_x96"`
}
