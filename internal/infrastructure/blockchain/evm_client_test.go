package blockchain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

func newDecodeClient(t *testing.T) *EVMClient {
	t.Helper()
	parsedABI, err := abi.JSON(strings.NewReader(purchaseContractABI))
	require.NoError(t, err)
	return &EVMClient{
		contract:  common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		parsedABI: parsedABI,
	}
}

func packPurchaseLog(t *testing.T, c *EVMClient, buyer common.Address, providerTxID string, diamonds uint64, stablecoin *big.Int) types.Log {
	t.Helper()
	data, err := c.parsedABI.Events["PurchaseConfirmed"].Inputs.NonIndexed().Pack(providerTxID, diamonds, stablecoin)
	require.NoError(t, err)
	return types.Log{
		Address: c.contract,
		Topics: []common.Hash{
			c.parsedABI.Events["PurchaseConfirmed"].ID,
			common.BytesToHash(common.LeftPadBytes(buyer.Bytes(), 32)),
		},
		Data:        data,
		BlockNumber: 1234,
		TxHash:      common.HexToHash("0xbeef"),
	}
}

func TestDecodePurchaseLog(t *testing.T) {
	c := newDecodeClient(t)
	buyer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	lg := packPurchaseLog(t, c, buyer, "tx-42", 1000, big.NewInt(80000))

	event, err := c.decodeLog(lg)
	require.NoError(t, err)
	require.Equal(t, buyer.Hex(), event.Buyer)
	require.Equal(t, "tx-42", event.ProviderTxID)
	require.Equal(t, int64(1000), event.DiamondAmount)
	require.Equal(t, "80000", event.StablecoinAmount)
	require.Equal(t, uint64(1234), event.BlockNumber)
	require.Equal(t, common.HexToHash("0xbeef").Hex(), event.TxHash)
}

func TestDecodePurchaseLogMissingBuyerTopic(t *testing.T) {
	c := newDecodeClient(t)
	lg := packPurchaseLog(t, c, common.HexToAddress("0x1"), "tx-1", 1, big.NewInt(1))
	lg.Topics = lg.Topics[:1]

	_, err := c.decodeLog(lg)
	require.Error(t, err)
}

func TestDecodePurchaseLogGarbageData(t *testing.T) {
	c := newDecodeClient(t)
	lg := packPurchaseLog(t, c, common.HexToAddress("0x1"), "tx-1", 1, big.NewInt(1))
	lg.Data = []byte{0x01, 0x02}

	_, err := c.decodeLog(lg)
	require.Error(t, err)
}
