package events

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"swapPipeline/internal/tron"
)

// Topic is a topic0 filter together with the signature it came from, if any.
type Topic struct {
	Hash      common.Hash
	Signature string
}

// ParseAddresses accepts hex or base58check addresses and skips blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := tron.ParseAddress(input)
		if err != nil {
			return nil, fmt.Errorf("invalid address %s: %w", input, err)
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParseTopics accepts event signatures such as
// "Swap(address,address,int256,int256,uint160,uint128,int24)" or raw 32-byte
// topic hashes.
func ParseTopics(inputs []string) ([]Topic, error) {
	topics := make([]Topic, 0, len(inputs))
	for _, input := range inputs {
		input = strings.Join(strings.Fields(input), "")
		if input == "" {
			continue
		}
		if strings.Contains(input, "(") {
			if !strings.HasSuffix(input, ")") {
				return nil, fmt.Errorf("invalid event signature: %s", input)
			}
			topics = append(topics, Topic{Hash: crypto.Keccak256Hash([]byte(input)), Signature: input})
			continue
		}
		data, err := hexutil.Decode(input)
		if err != nil {
			return nil, fmt.Errorf("invalid topic0: %s", input)
		}
		if len(data) != common.HashLength {
			return nil, fmt.Errorf("invalid topic0 length: %s", input)
		}
		topics = append(topics, Topic{Hash: common.BytesToHash(data)})
	}
	return topics, nil
}

func topicHashes(topics []Topic) []common.Hash {
	out := make([]common.Hash, len(topics))
	for i, topic := range topics {
		out[i] = topic.Hash
	}
	return out
}
