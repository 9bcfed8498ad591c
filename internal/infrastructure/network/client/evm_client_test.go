package client

import (
	"bytes"
	"context"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"wallet_core/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	testKey   = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	walletA   = "0x00000000000000000000000000000000000000AA"
	tokenAddr = "0x00000000000000000000000000000000000000C0"
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcRequest struct {
	ID     jsoniter.RawMessage   `json:"id"`
	Method string                `json:"method"`
	Params []jsoniter.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      jsoniter.RawMessage `json:"id"`
	Result  interface{}         `json:"result,omitempty"`
	Error   *rpcError           `json:"error,omitempty"`
}

type rpcHandler func(params []jsoniter.RawMessage) (interface{}, *rpcError)

// fakeNode is a minimal JSON-RPC endpoint answering a fixed set of methods.
type fakeNode struct {
	mu       sync.Mutex
	chainID  uint64
	handlers map[string]rpcHandler
	calls    []rpcRequest
}

func newFakeNode(t *testing.T, chainID uint64) (*fakeNode, *httptest.Server) {
	node := &fakeNode{chainID: chainID, handlers: map[string]rpcHandler{}}
	node.handlers["eth_chainId"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return hexutil.EncodeUint64(node.chainID), nil
	}
	srv := httptest.NewServer(http.HandlerFunc(node.serve))
	t.Cleanup(srv.Close)
	return node, srv
}

func (n *fakeNode) handle(req rpcRequest) rpcResponse {
	n.mu.Lock()
	n.calls = append(n.calls, req)
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if !ok {
		resp.Error = &rpcError{Code: -32601, Message: "method not found: " + req.Method}
		return resp
	}
	resp.Result, resp.Error = h(req.Params)
	return resp
}

func (n *fakeNode) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		var reqs []rpcRequest
		_ = json.Unmarshal(body, &reqs)
		out := make([]rpcResponse, len(reqs))
		for i, req := range reqs {
			out[i] = n.handle(req)
		}
		_ = json.NewEncoder(w).Encode(out)
		return
	}
	var req rpcRequest
	_ = json.Unmarshal(body, &req)
	_ = json.NewEncoder(w).Encode(n.handle(req))
}

func (n *fakeNode) methodCalls(method string) []rpcRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []rpcRequest
	for _, c := range n.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func testDefinition(url string) entity.NetworkDefinition {
	return entity.NetworkDefinition{ChainID: 1, Name: "Test Chain", Identifier: entity.NetworkEthereum, NativeSymbol: "ETH", Decimals: 18, PrimaryRPCURL: url}
}

func balanceWord(v int64) string {
	return hexutil.Encode(common.LeftPadBytes(big.NewInt(v).Bytes(), 32))
}

func TestNewEVMClient_FallsBackOnChainIDMismatch(t *testing.T) {
	_, wrong := newFakeNode(t, 5)
	_, right := newFakeNode(t, 1)

	def := testDefinition(wrong.URL)
	def.FallbackRPCURLs = []string{right.URL}

	c, err := NewEVMClient(def, EVMClientOptions{})
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, uint64(1), c.chainID.Uint64())

	_, err = NewEVMClient(testDefinition(wrong.URL), EVMClientOptions{})
	assert.ErrorContains(t, err, "chain id mismatch")
}

func TestEVMClient_Accounts(t *testing.T) {
	node, srv := newFakeNode(t, 1)
	node.handlers["eth_accounts"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return []string{strings.ToLower(walletA)}, nil
	}

	c, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{})
	require.NoError(t, err)
	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{common.HexToAddress(walletA).Hex()}, accounts)

	keyed, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{PrivateKeyHex: "0x" + testKey})
	require.NoError(t, err)
	key, _ := crypto.HexToECDSA(testKey)
	accounts, err = keyed.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{crypto.PubkeyToAddress(key.PublicKey).Hex()}, accounts)
	assert.Len(t, node.methodCalls("eth_accounts"), 1, "keyed clients never ask the node")
}

func TestEVMClient_GetBalance(t *testing.T) {
	node, srv := newFakeNode(t, 1)
	node.handlers["eth_getBalance"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return hexutil.EncodeBig(big.NewInt(1_000_000)), nil
	}
	node.handlers["eth_call"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return balanceWord(42), nil
	}

	c, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{})
	require.NoError(t, err)

	native, err := c.GetBalance(context.Background(), walletA, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), native.Int64())

	token, err := c.GetBalance(context.Background(), walletA, tokenAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(42), token.Int64())
}

func TestEVMClient_GetBalances_PerItemErrors(t *testing.T) {
	node, srv := newFakeNode(t, 1)
	node.handlers["eth_getBalance"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return hexutil.EncodeBig(big.NewInt(7)), nil
	}
	node.handlers["eth_call"] = func(params []jsoniter.RawMessage) (interface{}, *rpcError) {
		var call struct {
			To string `json:"to"`
		}
		_ = json.Unmarshal(params[0], &call)
		if strings.EqualFold(call.To, tokenAddr) {
			return balanceWord(9), nil
		}
		return nil, &rpcError{Code: -32000, Message: "execution reverted"}
	}

	c, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{})
	require.NoError(t, err)

	results, err := c.GetBalances(context.Background(), []entity.BalanceRequestItem{
		{ID: "native", Type: entity.NativeBalanceRequest, WalletAddress: walletA, TokenSymbol: "ETH"},
		{ID: "token", Type: entity.TokenBalanceRequest, WalletAddress: walletA, TokenAddress: tokenAddr, TokenSymbol: "TKN"},
		{ID: "broken", Type: entity.TokenBalanceRequest, WalletAddress: walletA, TokenAddress: "0x00000000000000000000000000000000000000D0", TokenSymbol: "BAD"},
		{ID: "unknown", Type: entity.BalanceRequestType(9), WalletAddress: walletA},
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, int64(7), results[0].Balance.Int64())
	assert.True(t, results[0].IsNative)
	assert.Equal(t, int64(9), results[1].Balance.Int64())
	assert.Error(t, results[2].Error)
	assert.Error(t, results[3].Error)
}

func TestEVMClient_SendViaNode(t *testing.T) {
	node, srv := newFakeNode(t, 1)
	var rejected atomic.Bool
	node.handlers["eth_sendTransaction"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		if rejected.Load() {
			return nil, &rpcError{Code: 4001, Message: "User rejected the request."}
		}
		return common.HexToHash("0xabc").Hex(), nil
	}

	c, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{})
	require.NoError(t, err)

	call := entity.ChainCall{
		From:                 walletA,
		To:                   tokenAddr,
		Gas:                  21000,
		MaxFeePerGas:         big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
	}
	hash, err := c.SendTransaction(context.Background(), call)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xabc").Hex(), hash)

	sent := node.methodCalls("eth_sendTransaction")
	require.Len(t, sent, 1)
	var args map[string]string
	require.NoError(t, json.Unmarshal(sent[0].Params[0], &args))
	assert.True(t, strings.EqualFold(walletA, args["from"]))
	assert.Equal(t, "0x5208", args["gas"])

	rejected.Store(true)
	_, err = c.SendTransaction(context.Background(), call)
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrSignatureRejected)
}

func TestEVMClient_SendSigned(t *testing.T) {
	node, srv := newFakeNode(t, 1)
	node.handlers["eth_getTransactionCount"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return "0x3", nil
	}
	node.handlers["eth_sendRawTransaction"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return common.Hash{}.Hex(), nil
	}
	node.handlers["eth_estimateGas"] = func([]jsoniter.RawMessage) (interface{}, *rpcError) {
		return "0xc350", nil
	}

	c, err := NewEVMClient(testDefinition(srv.URL), EVMClientOptions{PrivateKeyHex: testKey})
	require.NoError(t, err)

	hash, err := c.SendTransaction(context.Background(), entity.ChainCall{
		From:                 c.address.Hex(),
		To:                   walletA,
		Value:                big.NewInt(5),
		MaxFeePerGas:         big.NewInt(3_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
	})
	require.NoError(t, err)

	sent := node.methodCalls("eth_sendRawTransaction")
	require.Len(t, sent, 1)
	var raw string
	require.NoError(t, json.Unmarshal(sent[0].Params[0], &raw))

	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(raw)))
	assert.Equal(t, tx.Hash().Hex(), hash)
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(50000), tx.Gas(), "missing gas is estimated")
	assert.Equal(t, int64(5), tx.Value().Int64())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), &tx)
	require.NoError(t, err)
	assert.Equal(t, c.address, sender)
}
