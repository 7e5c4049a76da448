package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeCurrency описание нативной валюты сети для wallet_addEthereumChain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// NetworkParams параметры сети в формате EIP-3085.
type NetworkParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// Columbus тестовая сеть Camino, на которую рассчитан контракт.
var Columbus = NetworkParams{
	ChainID:   "0x1f5",
	ChainName: "Columbus",
	NativeCurrency: NativeCurrency{
		Name:     "Camino",
		Symbol:   "CAM",
		Decimals: Decimals,
	},
	RPCURLs:           []string{"https://columbus.camino.network/ext/bc/C/rpc"},
	BlockExplorerURLs: []string{"https://explorer.camino.foundation/"},
}

// SameChain сравнивает идентификаторы сетей численно ("0x1F5" == "0x1f5").
func SameChain(a, b string) bool {
	x, errA := hexutil.DecodeBig(strings.ToLower(a))
	y, errB := hexutil.DecodeBig(strings.ToLower(b))
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return x.Cmp(y) == 0
}
