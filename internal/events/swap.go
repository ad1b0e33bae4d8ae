package events

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"swapPipeline/internal/amm"
	"swapPipeline/internal/model"
)

const poolEventsJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "sender", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "recipient", "type": "address"},
      {"indexed": false, "internalType": "int256", "name": "amount0", "type": "int256"},
      {"indexed": false, "internalType": "int256", "name": "amount1", "type": "int256"},
      {"indexed": false, "internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
      {"indexed": false, "internalType": "uint128", "name": "liquidity", "type": "uint128"},
      {"indexed": false, "internalType": "int24", "name": "tick", "type": "int24"}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

var (
	swapEventOnce sync.Once
	swapEvent     abi.Event
	swapEventErr  error
)

func poolSwapEvent() (abi.Event, error) {
	swapEventOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(poolEventsJSON))
		if err != nil {
			swapEventErr = fmt.Errorf("parse pool events abi: %w", err)
			return
		}
		swapEvent = parsed.Events["Swap"]
	})
	return swapEvent, swapEventErr
}

// DecodeSwap decodes a pool Swap log. It reports false for any other log.
func DecodeSwap(log types.Log) (*model.SwapFields, bool, error) {
	event, err := poolSwapEvent()
	if err != nil {
		return nil, false, err
	}
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, false, nil
	}
	if len(log.Topics) != 3 {
		return nil, true, fmt.Errorf("swap log has %d topics", len(log.Topics))
	}

	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	var indexedArgs abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexedArgs = append(indexedArgs, arg)
		}
	}
	if err := abi.ParseTopics(&indexed, indexedArgs, log.Topics[1:]); err != nil {
		return nil, true, fmt.Errorf("parse swap topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, true, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return nil, true, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	nums := make([]*big.Int, len(values))
	for i, value := range values {
		n, ok := value.(*big.Int)
		if !ok {
			return nil, true, fmt.Errorf("swap field %d: unsupported type %T", i, value)
		}
		nums[i] = n
	}
	if !nums[4].IsInt64() {
		return nil, true, fmt.Errorf("tick out of range: %s", nums[4])
	}

	return &model.SwapFields{
		Sender:       indexed.Sender.Hex(),
		Recipient:    indexed.Recipient.Hex(),
		Amount0:      nums[0].String(),
		Amount1:      nums[1].String(),
		SqrtPriceX96: nums[2].String(),
		Liquidity:    nums[3].String(),
		Tick:         int32(nums[4].Int64()),
		Price:        amm.DecodeSqrtPrice(nums[2]),
	}, true, nil
}
