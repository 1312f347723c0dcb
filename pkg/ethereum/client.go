package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainsafe/vault-etl/pkg/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Client is a read-only Ethereum client over an ordered list of JSON-RPC endpoints.
// Connect selects the first endpoint that answers a liveness probe; all reads go to it.
type Client struct {
	urls   []string
	config config.RPCConfig
	logger *zap.Logger

	client   *ethclient.Client
	endpoint string
	chainID  *big.Int
}

// NewClient creates a new Ethereum client. No connection is made until Connect.
func NewClient(urls []string, cfg config.RPCConfig, logger *zap.Logger) *Client {
	return &Client{
		urls:   urls,
		config: cfg,
		logger: logger,
	}
}

// Connect tries every endpoint in order and keeps the first live one.
// Any previously held connection is closed first.
func (c *Client) Connect(ctx context.Context) error {
	c.Close()

	var errs []error
	for _, url := range c.urls {
		client, chainID, err := c.dial(ctx, url)
		if err != nil {
			c.logger.Warn("RPC endpoint unavailable",
				zap.String("rpc_url", url),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}

		c.client = client
		c.endpoint = url
		c.chainID = chainID

		c.logger.Info("Connected to Ethereum",
			zap.String("rpc_url", url),
			zap.String("chain_id", chainID.String()))
		return nil
	}

	return errors.Join(append([]error{ErrNoAvailableEndpoint}, errs...)...)
}

func (c *Client) dial(ctx context.Context, url string) (*ethclient.Client, *big.Int, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}

	// eth_chainId doubles as the liveness probe
	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("liveness probe: %w", err)
	}

	return client, chainID, nil
}

// Close closes the current connection, if any
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.endpoint = ""
	c.chainID = nil
}

// Endpoint returns the URL of the connected endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// ChainID returns the chain id reported by the connected endpoint
func (c *Client) ChainID() *big.Int {
	return c.chainID
}

// CurrentBlockNumber returns the latest block number
func (c *Client) CurrentBlockNumber(ctx context.Context) (uint64, error) {
	if c.client == nil {
		return 0, ErrNotConnected
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	number, err := c.client.BlockNumber(callCtx)
	if err != nil {
		return 0, c.rpcError("eth_blockNumber", err)
	}
	return number, nil
}

// BlockTimestamp returns the UTC timestamp of the given block
func (c *Client) BlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	if c.client == nil {
		return time.Time{}, ErrNotConnected
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(callCtx, new(big.Int).SetUint64(blockNumber))
	if err != nil {
		return time.Time{}, c.rpcError("eth_getBlockByNumber", err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// CallContractFunction executes a read-only contract call and returns the decoded outputs.
// A nil atBlock reads the latest state.
func (c *Client) CallContractFunction(
	ctx context.Context,
	address common.Address,
	contractABI *abi.ABI,
	method string,
	atBlock *big.Int,
	args ...any,
) ([]any, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}

	input, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
	defer cancel()

	output, err := c.client.CallContract(callCtx, ethereum.CallMsg{To: &address, Data: input}, atBlock)
	if err != nil {
		return nil, c.rpcError("eth_call "+method, err)
	}

	values, err := contractABI.Unpack(method, output)
	if err != nil {
		return nil, c.rpcError("eth_call "+method, fmt.Errorf("decode output: %w", err))
	}
	return values, nil
}

func (c *Client) rpcError(method string, err error) error {
	return &RPCError{Method: method, Endpoint: c.endpoint, Err: err}
}
