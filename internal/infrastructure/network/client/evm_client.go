package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/evmcall"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// userRejectedCode is the EIP-1193 error code for a signature request declined by the user.
const userRejectedCode = 4001

// EVMClientOptions configures an EVMClient.
type EVMClientOptions struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	// PrivateKeyHex enables local signing. Empty means the node manages accounts (eth_accounts / eth_sendTransaction).
	PrivateKeyHex string
}

// EVMClient implements port.ChainClient for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	chainID        *big.Int
	rpcCallTimeout time.Duration
	privateKey     *ecdsa.PrivateKey
	address        common.Address
}

// NewEVMClient dials the primary RPC and then the fallbacks until one answers with the expected chain id.
func NewEVMClient(netDef entity.NetworkDefinition, opts EVMClientOptions) (*EVMClient, error) {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = 10 * time.Second
	}
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = 10 * time.Second
	}

	c := &EVMClient{netDef: netDef, rpcCallTimeout: opts.RPCCallTimeout}
	if opts.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key for network %s: %w", netDef.Name, err)
		}
		c.privateKey = key
		c.address = crypto.PubkeyToAddress(key.PublicKey)
	}

	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error
	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}
		chainID, err := client.ChainID(ctx)
		cancel()
		if err != nil {
			client.Close()
			lastErr = fmt.Errorf("failed to verify chain id at %s: %w", rpcURL, err)
			continue
		}
		if netDef.ChainID != 0 && chainID.Uint64() != netDef.ChainID {
			client.Close()
			lastErr = fmt.Errorf("chain id mismatch at %s: expected %d, got %d", rpcURL, netDef.ChainID, chainID.Uint64())
			continue
		}
		c.ethClient = client
		c.chainID = chainID
		return c, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no RPC URL configured")
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

func (c *EVMClient) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.rpcCallTimeout)
}

// Accounts returns the signing account. In node-managed mode the node's first account is the selected one.
func (c *EVMClient) Accounts(ctx context.Context) ([]string, error) {
	if c.privateKey != nil {
		return []string{c.address.Hex()}, nil
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	var accounts []common.Address
	if err := c.ethClient.Client().CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, mapSignerError(fmt.Errorf("eth_accounts failed: %w", err))
	}
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = a.Hex()
	}
	return out, nil
}

func toCallMsg(call entity.ChainCall) ethereum.CallMsg {
	msg := ethereum.CallMsg{
		From:      common.HexToAddress(call.From),
		Value:     call.Value,
		Data:      call.Data,
		Gas:       call.Gas,
		GasFeeCap: call.MaxFeePerGas,
		GasTipCap: call.MaxPriorityFeePerGas,
	}
	if call.To != "" {
		to := common.HexToAddress(call.To)
		msg.To = &to
	}
	return msg
}

// EstimateGas estimates the gas the call would consume.
func (c *EVMClient) EstimateGas(ctx context.Context, call entity.ChainCall) (uint64, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	msg := toCallMsg(call)
	msg.Gas = 0
	gas, err := c.ethClient.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("gas estimation failed on %s: %w", c.netDef.Name, err)
	}
	return gas, nil
}

// SuggestFees returns EIP-1559 fees: the suggested tip plus twice the latest base fee.
// Chains without a base fee get the legacy gas price for both values.
func (c *EVMClient) SuggestFees(ctx context.Context) (entity.FeeSuggestion, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	head, err := c.ethClient.HeaderByNumber(ctx, nil)
	if err != nil {
		return entity.FeeSuggestion{}, fmt.Errorf("failed to fetch latest header on %s: %w", c.netDef.Name, err)
	}
	if head.BaseFee == nil {
		price, err := c.ethClient.SuggestGasPrice(ctx)
		if err != nil {
			return entity.FeeSuggestion{}, fmt.Errorf("failed to suggest gas price on %s: %w", c.netDef.Name, err)
		}
		return entity.FeeSuggestion{MaxFeePerGas: price, MaxPriorityFeePerGas: price}, nil
	}
	tip, err := c.ethClient.SuggestGasTipCap(ctx)
	if err != nil {
		return entity.FeeSuggestion{}, fmt.Errorf("failed to suggest gas tip on %s: %w", c.netDef.Name, err)
	}
	maxFee := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	return entity.FeeSuggestion{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}, nil
}

// SendTransaction signs and submits the call. Missing gas or fees are filled in from the node.
func (c *EVMClient) SendTransaction(ctx context.Context, call entity.ChainCall) (string, error) {
	if call.Gas == 0 {
		gas, err := c.EstimateGas(ctx, call)
		if err != nil {
			return "", err
		}
		call.Gas = gas
	}
	if call.MaxFeePerGas == nil || call.MaxPriorityFeePerGas == nil {
		fees, err := c.SuggestFees(ctx)
		if err != nil {
			return "", err
		}
		if call.MaxFeePerGas == nil {
			call.MaxFeePerGas = fees.MaxFeePerGas
		}
		if call.MaxPriorityFeePerGas == nil {
			call.MaxPriorityFeePerGas = fees.MaxPriorityFeePerGas
		}
	}
	if call.Value == nil {
		call.Value = big.NewInt(0)
	}

	if c.privateKey != nil {
		return c.sendSigned(ctx, call)
	}
	return c.sendViaNode(ctx, call)
}

func (c *EVMClient) sendSigned(ctx context.Context, call entity.ChainCall) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	nonce, err := c.ethClient.PendingNonceAt(ctx, c.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	var to *common.Address
	if call.To != "" {
		addr := common.HexToAddress(call.To)
		to = &addr
	}
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: call.MaxPriorityFeePerGas,
		GasFeeCap: call.MaxFeePerGas,
		Gas:       call.Gas,
		To:        to,
		Value:     call.Value,
		Data:      call.Data,
	})
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

func (c *EVMClient) sendViaNode(ctx context.Context, call entity.ChainCall) (string, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	args := map[string]interface{}{
		"from":                 common.HexToAddress(call.From),
		"gas":                  hexutil.Uint64(call.Gas),
		"value":                (*hexutil.Big)(call.Value),
		"maxFeePerGas":         (*hexutil.Big)(call.MaxFeePerGas),
		"maxPriorityFeePerGas": (*hexutil.Big)(call.MaxPriorityFeePerGas),
	}
	if call.To != "" {
		args["to"] = common.HexToAddress(call.To)
	}
	if len(call.Data) > 0 {
		args["data"] = hexutil.Bytes(call.Data)
	}

	var hash common.Hash
	if err := c.ethClient.Client().CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return "", mapSignerError(fmt.Errorf("eth_sendTransaction failed: %w", err))
	}
	return hash.Hex(), nil
}

// mapSignerError turns an EIP-1193 user rejection into SignatureRejected.
func mapSignerError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode {
		return entity.NewError(entity.KindSignatureRejected, "sign", "signature request rejected", err)
	}
	return err
}

// Call executes a read-only contract call against the latest block.
func (c *EVMClient) Call(ctx context.Context, call entity.ChainCall) ([]byte, error) {
	ctx, cancel := c.callContext(ctx)
	defer cancel()
	out, err := c.ethClient.CallContract(ctx, toCallMsg(call), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call to %s failed: %w", call.To, err)
	}
	return out, nil
}

// GetBalance returns the raw native or ERC20 balance of address.
func (c *EVMClient) GetBalance(ctx context.Context, address string, tokenAddress string) (*big.Int, error) {
	if entity.IsNativeToken(tokenAddress) {
		ctx, cancel := c.callContext(ctx)
		defer cancel()
		balance, err := c.ethClient.BalanceAt(ctx, common.HexToAddress(address), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch native balance on %s: %w", c.netDef.Name, err)
		}
		return balance, nil
	}

	data, err := evmcall.BalanceOf(address)
	if err != nil {
		return nil, err
	}
	out, err := c.Call(ctx, entity.ChainCall{To: tokenAddress, Data: data})
	if err != nil {
		return nil, err
	}
	return evmcall.UnpackBalance(out)
}

// GetBalances fetches multiple balances using one JSON-RPC batch request.
// Per-item failures are reported on the item; the returned error covers the batch transport only.
func (c *EVMClient) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	if len(requests) == 0 {
		return []entity.BalanceResultItem{}, nil
	}

	batchElems := make([]rpc.BatchElem, 0, len(requests))
	elemIndex := make([]int, 0, len(requests))
	results := make([]entity.BalanceResultItem, len(requests))

	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			RequestID:     reqItem.ID,
			WalletAddress: reqItem.WalletAddress,
			TokenAddress:  reqItem.TokenAddress,
			TokenSymbol:   reqItem.TokenSymbol,
			TokenName:     reqItem.TokenName,
			Decimals:      reqItem.TokenDecimals,
			IsNative:      reqItem.Type == entity.NativeBalanceRequest,
		}

		switch reqItem.Type {
		case entity.NativeBalanceRequest:
			batchElems = append(batchElems, rpc.BatchElem{
				Method: "eth_getBalance",
				Args:   []interface{}{common.HexToAddress(reqItem.WalletAddress), "latest"},
				Result: new(hexutil.Big),
			})
		case entity.TokenBalanceRequest:
			data, err := evmcall.BalanceOf(reqItem.WalletAddress)
			if err != nil {
				results[i].Error = err
				continue
			}
			batchElems = append(batchElems, rpc.BatchElem{
				Method: "eth_call",
				Args: []interface{}{map[string]interface{}{
					"to":   common.HexToAddress(reqItem.TokenAddress),
					"data": hexutil.Bytes(data),
				}, "latest"},
				Result: new(hexutil.Bytes),
			})
		default:
			results[i].Error = fmt.Errorf("unknown balance request type: %v for %s", reqItem.Type, reqItem.TokenSymbol)
			continue
		}
		elemIndex = append(elemIndex, i)
	}

	ctx, cancel := c.callContext(ctx)
	defer cancel()
	if err := c.ethClient.Client().BatchCallContext(ctx, batchElems); err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for n, elem := range batchElems {
		i := elemIndex[n]
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("failed to fetch %s (%s) for wallet %s: %w",
				requests[i].TokenSymbol, requests[i].TokenAddress, requests[i].WalletAddress, elem.Error)
			continue
		}
		switch result := elem.Result.(type) {
		case *hexutil.Big:
			results[i].Balance = (*big.Int)(result)
		case *hexutil.Bytes:
			balance, err := evmcall.UnpackBalance(*result)
			if err != nil {
				results[i].Error = fmt.Errorf("%s: %w", requests[i].TokenSymbol, err)
				continue
			}
			results[i].Balance = balance
		}
		if results[i].Balance == nil {
			results[i].Balance = big.NewInt(0)
		}
	}
	return results, nil
}
