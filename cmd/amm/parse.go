package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func parseAddress(name, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, input)
	}
	return common.HexToAddress(input), nil
}

// parseOptionalAddress returns the zero address for empty input.
func parseOptionalAddress(name, input string) (common.Address, error) {
	if strings.TrimSpace(input) == "" {
		return common.Address{}, nil
	}
	return parseAddress(name, input)
}

// parseAddresses converts string addresses into common.Address.
func parseAddresses(name string, inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		addr, err := parseAddress(name, input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}
