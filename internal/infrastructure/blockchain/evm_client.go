package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"diamond-pay.backend/internal/domain/entities"
)

// purchaseContractABI covers the single event this engine consumes.
// The providerTxId string is the reference the backend attached when it
// created the provider transfer, which lets a chain-discovered
// confirmation join the settlement record directly.
const purchaseContractABI = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"buyer","type":"address"},{"indexed":false,"internalType":"string","name":"providerTxId","type":"string"},{"indexed":false,"internalType":"uint64","name":"diamondAmount","type":"uint64"},{"indexed":false,"internalType":"uint256","name":"stablecoinAmount","type":"uint256"}],"name":"PurchaseConfirmed","type":"event"}]`

// ReadClient is the narrow blockchain contract the poller depends on
type ReadClient interface {
	HeadBlockNumber(ctx context.Context) (uint64, error)
	FilterPurchaseConfirmed(ctx context.Context, fromBlock, toBlock uint64) ([]entities.PurchaseConfirmedEvent, error)
}

// EVMClient provides read-only EVM blockchain access
type EVMClient struct {
	client    *ethclient.Client
	contract  common.Address
	parsedABI abi.ABI
}

// NewEVMClient creates a new EVM client for the purchase contract
func NewEVMClient(rpcURL, contractAddress string) (*EVMClient, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}

	parsedABI, err := abi.JSON(strings.NewReader(purchaseContractABI))
	if err != nil {
		return nil, err
	}

	return &EVMClient{
		client:    client,
		contract:  common.HexToAddress(contractAddress),
		parsedABI: parsedABI,
	}, nil
}

// HeadBlockNumber gets the latest block number
func (c *EVMClient) HeadBlockNumber(ctx context.Context) (uint64, error) {
	return c.client.BlockNumber(ctx)
}

// FilterPurchaseConfirmed fetches PurchaseConfirmed events emitted by
// the purchase contract in the inclusive block range
func (c *EVMClient) FilterPurchaseConfirmed(ctx context.Context, fromBlock, toBlock uint64) ([]entities.PurchaseConfirmedEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.contract},
		Topics:    [][]common.Hash{{c.parsedABI.Events["PurchaseConfirmed"].ID}},
	}

	logs, err := c.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}

	events := make([]entities.PurchaseConfirmedEvent, 0, len(logs))
	for _, lg := range logs {
		event, err := c.decodeLog(lg)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (c *EVMClient) decodeLog(lg types.Log) (entities.PurchaseConfirmedEvent, error) {
	if len(lg.Topics) < 2 {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("purchase log %s missing buyer topic", lg.TxHash.Hex())
	}

	values, err := c.parsedABI.Unpack("PurchaseConfirmed", lg.Data)
	if err != nil {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("decode purchase log %s: %w", lg.TxHash.Hex(), err)
	}
	if len(values) != 3 {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("purchase log %s has %d fields, want 3", lg.TxHash.Hex(), len(values))
	}

	providerTxID, ok := values[0].(string)
	if !ok {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("purchase log %s: providerTxId is not a string", lg.TxHash.Hex())
	}
	diamondAmount, ok := values[1].(uint64)
	if !ok {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("purchase log %s: diamondAmount is not a uint64", lg.TxHash.Hex())
	}
	stablecoinAmount, ok := values[2].(*big.Int)
	if !ok {
		return entities.PurchaseConfirmedEvent{}, fmt.Errorf("purchase log %s: stablecoinAmount is not a uint256", lg.TxHash.Hex())
	}

	return entities.PurchaseConfirmedEvent{
		Buyer:            common.HexToAddress(lg.Topics[1].Hex()).Hex(),
		ProviderTxID:     providerTxID,
		DiamondAmount:    int64(diamondAmount),
		StablecoinAmount: stablecoinAmount.String(),
		BlockNumber:      lg.BlockNumber,
		TxHash:           lg.TxHash.Hex(),
	}, nil
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

var _ ReadClient = (*EVMClient)(nil)
