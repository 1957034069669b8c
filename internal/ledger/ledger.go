// Package ledger is a thin adapter over the deployed provenance smart
// contract. It exposes exactly three operations — create batch, append
// stage, fetch batch summary — and converts every chain-native uint256 to a
// decimal string before it leaves this layer, so no consumer ever touches
// a big integer.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/maheshwarisharman/sih-ayurveda/internal/model"
)

// contractABI describes the three entry points and the creation event of
// the deployed provenance contract. The bytecode itself is external; only
// this interface is compiled in.
const contractABI = `[
  {"type":"function","name":"createBatch","stateMutability":"nonpayable",
   "inputs":[{"name":"name","type":"string"}],
   "outputs":[{"name":"batchId","type":"uint256"}]},
  {"type":"function","name":"addStage","stateMutability":"nonpayable",
   "inputs":[{"name":"batchId","type":"uint256"},{"name":"stageType","type":"uint8"},{"name":"metadataHash","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"getBatch","stateMutability":"view",
   "inputs":[{"name":"batchId","type":"uint256"}],
   "outputs":[{"name":"name","type":"string"},
              {"name":"stages","type":"tuple[]","components":[
                {"name":"stageType","type":"uint8"},
                {"name":"timestamp","type":"uint256"},
                {"name":"metadataHash","type":"string"}]}]},
  {"type":"event","name":"BatchCreated","anonymous":false,
   "inputs":[{"name":"batchId","type":"uint256","indexed":false},
             {"name":"name","type":"string","indexed":false}]}
]`

// BatchSummary is the contract's view of a batch.
type BatchSummary struct {
	Name   string
	Stages []model.LedgerStage
}

// Client wraps the bound contract. Safe for concurrent use: transactions
// are serialized through txMu so the keyed transactor's nonce handling
// stays consistent.
type Client struct {
	eth      *ethclient.Client
	contract *bind.BoundContract
	parsed   abi.ABI
	auth     *bind.TransactOpts
	txMu     sync.Mutex
}

// Dial connects to the chain RPC endpoint and binds the contract at addr.
// keyHex is the hex-encoded private key used to sign transactions.
func Dial(ctx context.Context, rpcURL, addr, keyHex string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: chain id: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: transactor: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("ledger: parse ABI: %w", err)
	}

	if !common.IsHexAddress(addr) {
		eth.Close()
		return nil, fmt.Errorf("ledger: invalid contract address %q", addr)
	}

	contract := bind.NewBoundContract(common.HexToAddress(addr), parsed, eth, eth, eth)

	return &Client{
		eth:      eth,
		contract: contract,
		parsed:   parsed,
		auth:     auth,
	}, nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// batchCreatedEvent mirrors the BatchCreated event for log unpacking.
type batchCreatedEvent struct {
	BatchId *big.Int
	Name    string
}

// CreateBatch submits a createBatch transaction, waits for it to be mined
// and returns the batch id emitted by the BatchCreated event as a decimal
// string. A rejected or reverted transaction surfaces as an error; there
// is no retry.
func (c *Client) CreateBatch(ctx context.Context, name string) (string, error) {
	c.txMu.Lock()
	c.auth.Context = ctx
	tx, err := c.contract.Transact(c.auth, "createBatch", name)
	c.txMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("ledger: createBatch transact: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return "", fmt.Errorf("ledger: createBatch wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("ledger: createBatch reverted (tx %s)", tx.Hash())
	}

	eventID := c.parsed.Events["BatchCreated"].ID
	for _, lg := range receipt.Logs {
		if len(lg.Topics) == 0 || lg.Topics[0] != eventID {
			continue
		}
		var ev batchCreatedEvent
		if err := c.contract.UnpackLog(&ev, "BatchCreated", *lg); err != nil {
			return "", fmt.Errorf("ledger: unpack BatchCreated: %w", err)
		}
		return ev.BatchId.String(), nil
	}
	return "", fmt.Errorf("ledger: createBatch mined without BatchCreated event (tx %s)", tx.Hash())
}

// AppendStage submits an addStage transaction mirroring one stage event's
// kind and metadata hash, and waits for it to be mined.
func (c *Client) AppendStage(ctx context.Context, batchID string, kind model.StageKind, metadataHash string) error {
	id, err := parseBatchID(batchID)
	if err != nil {
		return err
	}

	c.txMu.Lock()
	c.auth.Context = ctx
	tx, err := c.contract.Transact(c.auth, "addStage", id, uint8(kind), metadataHash)
	c.txMu.Unlock()
	if err != nil {
		return fmt.Errorf("ledger: addStage transact: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return fmt.Errorf("ledger: addStage wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("ledger: addStage reverted (tx %s)", tx.Hash())
	}
	return nil
}

// contractStage matches the getBatch stages tuple layout for unpacking.
type contractStage struct {
	StageType    uint8
	Timestamp    *big.Int
	MetadataHash string
}

// BatchSummary fetches the contract's full record for a batch.
func (c *Client) BatchSummary(ctx context.Context, batchID string) (BatchSummary, error) {
	id, err := parseBatchID(batchID)
	if err != nil {
		return BatchSummary{}, err
	}

	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getBatch", id); err != nil {
		return BatchSummary{}, fmt.Errorf("ledger: getBatch call: %w", err)
	}

	name := *abi.ConvertType(out[0], new(string)).(*string)
	raw := *abi.ConvertType(out[1], new([]contractStage)).(*[]contractStage)

	stages := make([]model.LedgerStage, len(raw))
	for i, s := range raw {
		stages[i] = model.LedgerStage{
			EventType:    model.StageKind(s.StageType),
			Timestamp:    s.Timestamp.String(),
			MetadataHash: s.MetadataHash,
		}
	}
	return BatchSummary{Name: name, Stages: stages}, nil
}

func parseBatchID(batchID string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(batchID, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("ledger: invalid batch id %q", batchID)
	}
	return id, nil
}
