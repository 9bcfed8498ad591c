package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"wallet_core/internal/app/port"
	"wallet_core/internal/domain/entity"
	"wallet_core/internal/pkg/evmcall"
	"wallet_core/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LocalSignerConfig tunes transaction building on the local signing path.
type LocalSignerConfig struct {
	GasSafetyMarginPercent int
	DefaultSlippagePercent decimal.Decimal
	SwapDeadline           time.Duration
}

// LocalSigner builds and submits transactions through the network's chain client, which signs
// with the connected browser-extension or hardware account.
type LocalSigner struct {
	clients port.ChainClientProvider
	cfg     LocalSignerConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewLocalSigner creates the local signing path.
func NewLocalSigner(clients port.ChainClientProvider, cfg LocalSignerConfig, logger *zap.Logger) *LocalSigner {
	if cfg.GasSafetyMarginPercent < 0 {
		cfg.GasSafetyMarginPercent = 0
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = 20 * time.Minute
	}
	return &LocalSigner{
		clients: clients,
		cfg:     cfg,
		logger:  logger.Named("LocalSigner"),
		now:     time.Now,
	}
}

func (s *LocalSigner) Path() entity.SigningPath { return entity.SigningPathLocal }

// Supports reports transfer and swap for local providers. Buy and sell need backend market routing.
func (s *LocalSigner) Supports(provider entity.ProviderKind, kind entity.TransactionKind) bool {
	if provider.SigningPath() != entity.SigningPathLocal {
		return false
	}
	return kind == entity.TransactionTransfer || kind == entity.TransactionSwap
}

// SignAndSubmit verifies the selected account, builds the call, estimates gas and submits it.
func (s *LocalSigner) SignAndSubmit(ctx context.Context, conn entity.WalletConnection, input entity.TransactionInput, report func(entity.DispatchState)) (port.SignResult, error) {
	const op = "LocalSigner.SignAndSubmit"
	report(entity.StateBuilding)

	client, err := s.clients.GetClient(conn.Network)
	if err != nil {
		return port.SignResult{}, err
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		if entity.KindOf(err) == entity.KindSignatureRejected {
			return port.SignResult{}, err
		}
		return port.SignResult{}, entity.NewError(entity.KindProviderUnavailable, op, "cannot read the selected account", err)
	}
	if len(accounts) == 0 || !strings.EqualFold(accounts[0], conn.ChainAddress) {
		selected := ""
		if len(accounts) > 0 {
			selected = accounts[0]
		}
		s.logger.Warn("Selected account does not match wallet",
			zap.String("wallet_id", conn.ID),
			zap.String("expected", conn.ChainAddress),
			zap.String("selected", selected))
		return port.SignResult{}, entity.NewError(entity.KindAccountMismatch, op,
			fmt.Sprintf("provider account %q does not match wallet address %s", selected, conn.ChainAddress), nil)
	}

	def := client.Definition()
	call, err := s.buildCall(ctx, client, def, conn, input)
	if err != nil {
		return port.SignResult{}, err
	}

	if err := s.applyGas(ctx, client, &call, input.Gas); err != nil {
		return port.SignResult{}, err
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(call.Gas), call.MaxFeePerGas)

	report(entity.StateSigning)
	hash, err := client.SendTransaction(ctx, call)
	if err != nil {
		if entity.KindOf(err) == entity.KindSignatureRejected {
			return port.SignResult{}, err
		}
		return port.SignResult{}, entity.NewError(entity.KindProviderUnavailable, op, "transaction submission failed", err)
	}

	s.logger.Info("Transaction submitted",
		zap.String("wallet_id", conn.ID),
		zap.String("network", string(def.Identifier)),
		zap.String("kind", string(input.Kind)),
		zap.String("hash", hash),
		zap.Uint64("gas", call.Gas))

	return port.SignResult{
		Hash:        hash,
		GasLimit:    call.Gas,
		FeeEstimate: utils.FromBaseUnits(fee, def.NativeDecimals()),
	}, nil
}

func (s *LocalSigner) buildCall(ctx context.Context, client port.ChainClient, def entity.NetworkDefinition, conn entity.WalletConnection, input entity.TransactionInput) (entity.ChainCall, error) {
	const op = "LocalSigner.buildCall"
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "amount is not a decimal", err)
	}

	switch input.Kind {
	case entity.TransactionTransfer:
		if !evmcall.IsAddress(input.ToAddress) {
			return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "recipient address is invalid", nil)
		}
		if entity.IsNativeToken(input.TokenAddress) {
			value, err := utils.ToBaseUnits(amount, def.NativeDecimals())
			if err != nil {
				return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "amount does not fit the native asset", err)
			}
			return entity.ChainCall{From: conn.ChainAddress, To: input.ToAddress, Value: value}, nil
		}

		raw, err := s.tokenAmount(ctx, client, input.TokenAddress, amount)
		if err != nil {
			return entity.ChainCall{}, err
		}
		data, err := evmcall.Transfer(input.ToAddress, raw)
		if err != nil {
			return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "cannot encode token transfer", err)
		}
		return entity.ChainCall{From: conn.ChainAddress, To: input.TokenAddress, Value: big.NewInt(0), Data: data}, nil

	case entity.TransactionSwap:
		return s.buildSwap(ctx, client, def, conn, input, amount)
	}
	return entity.ChainCall{}, entity.NewError(entity.KindUnsupportedOperation, op, string(input.Kind)+" is not available for local signing", nil)
}

// buildSwap quotes the router and builds swapExactTokensForTokens. The router must already hold an
// allowance for the input amount; a short allowance fails with PermissionDenied before gas estimation.
func (s *LocalSigner) buildSwap(ctx context.Context, client port.ChainClient, def entity.NetworkDefinition, conn entity.WalletConnection, input entity.TransactionInput, amount decimal.Decimal) (entity.ChainCall, error) {
	const op = "LocalSigner.buildSwap"
	router := def.SwapRouterAddress
	if router == "" {
		return entity.ChainCall{}, entity.NewError(entity.KindUnsupportedOperation, op, "no swap router configured for "+string(def.Identifier), nil)
	}
	if entity.IsNativeToken(input.TokenAddress) || entity.IsNativeToken(input.ToTokenAddress) {
		return entity.ChainCall{}, entity.NewError(entity.KindUnsupportedOperation, op, "native asset swaps are not supported; use the wrapped token", nil)
	}
	if !evmcall.IsAddress(input.TokenAddress) || !evmcall.IsAddress(input.ToTokenAddress) {
		return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "swap token addresses are invalid", nil)
	}
	if !contractAllowed(conn.Permissions, router) {
		return entity.ChainCall{}, entity.NewError(entity.KindPermissionDenied, op, "swap router "+router+" is not allow-listed", nil)
	}

	slippage := s.cfg.DefaultSlippagePercent
	if input.SlippagePercent != nil {
		slippage = *input.SlippagePercent
	}
	if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "slippage must be within [0, 100)", nil)
	}

	amountIn, err := s.tokenAmount(ctx, client, input.TokenAddress, amount)
	if err != nil {
		return entity.ChainCall{}, err
	}
	if err := s.checkAllowance(ctx, client, conn.ChainAddress, input.TokenAddress, router, amountIn); err != nil {
		return entity.ChainCall{}, err
	}
	path := []string{input.TokenAddress, input.ToTokenAddress}

	quoteData, err := evmcall.GetAmountsOut(amountIn, path)
	if err != nil {
		return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "cannot encode router quote", err)
	}
	out, err := client.Call(ctx, entity.ChainCall{From: conn.ChainAddress, To: router, Data: quoteData})
	if err != nil {
		return entity.ChainCall{}, entity.NewError(entity.KindProviderUnavailable, op, "router quote failed", err)
	}
	amounts, err := evmcall.UnpackAmountsOut(out)
	if err != nil || len(amounts) < 2 {
		return entity.ChainCall{}, entity.NewError(entity.KindProviderUnavailable, op, "router returned no quote", err)
	}

	quoted := decimal.NewFromBigInt(amounts[len(amounts)-1], 0)
	keep := decimal.NewFromInt(1).Sub(slippage.Div(decimal.NewFromInt(100)))
	minOut := quoted.Mul(keep).Floor().BigInt()

	deadline := s.now().Add(s.cfg.SwapDeadline).Unix()
	data, err := evmcall.SwapExactTokensForTokens(amountIn, minOut, path, conn.ChainAddress, deadline)
	if err != nil {
		return entity.ChainCall{}, entity.NewError(entity.KindInvalidInput, op, "cannot encode swap", err)
	}

	s.logger.Debug("Swap quoted",
		zap.String("router", router),
		zap.String("amount_in", amountIn.String()),
		zap.String("quoted_out", quoted.String()),
		zap.String("min_out", minOut.String()))

	return entity.ChainCall{From: conn.ChainAddress, To: router, Value: big.NewInt(0), Data: data}, nil
}

// checkAllowance fails with PermissionDenied when router may not spend amount of token for owner.
// Approving the router is left to the caller.
func (s *LocalSigner) checkAllowance(ctx context.Context, client port.ChainClient, owner, token, router string, amount *big.Int) error {
	const op = "LocalSigner.checkAllowance"
	data, err := evmcall.Allowance(owner, router)
	if err != nil {
		return entity.NewError(entity.KindInvalidInput, op, "cannot encode allowance call", err)
	}
	out, err := client.Call(ctx, entity.ChainCall{From: owner, To: token, Data: data})
	if err != nil {
		return entity.NewError(entity.KindProviderUnavailable, op, "allowance call failed", err)
	}
	allowance, err := evmcall.UnpackAllowance(out)
	if err != nil {
		return entity.NewError(entity.KindProviderUnavailable, op, "token returned no allowance", err)
	}
	if allowance.Cmp(amount) < 0 {
		return entity.NewError(entity.KindPermissionDenied, op,
			"router "+router+" is approved for "+allowance.String()+" of "+token+", swap needs "+amount.String(), nil)
	}
	return nil
}

func (s *LocalSigner) tokenAmount(ctx context.Context, client port.ChainClient, token string, amount decimal.Decimal) (*big.Int, error) {
	const op = "LocalSigner.tokenAmount"
	if !evmcall.IsAddress(token) {
		return nil, entity.NewError(entity.KindInvalidInput, op, "token address "+token+" is invalid", nil)
	}
	data, err := evmcall.Decimals()
	if err != nil {
		return nil, entity.NewError(entity.KindInvalidInput, op, "cannot encode decimals call", err)
	}
	out, err := client.Call(ctx, entity.ChainCall{To: token, Data: data})
	if err != nil {
		return nil, entity.NewError(entity.KindProviderUnavailable, op, "cannot read token decimals", err)
	}
	decimals, err := evmcall.UnpackDecimals(out)
	if err != nil {
		return nil, entity.NewError(entity.KindProviderUnavailable, op, "token did not report decimals", err)
	}
	raw, err := utils.ToBaseUnits(amount, decimals)
	if err != nil {
		return nil, entity.NewError(entity.KindInvalidInput, op, "amount does not fit token precision", err)
	}
	return raw, nil
}

// applyGas fills gas limit and fees from overrides, falling back to estimates.
// Estimated limits get the safety margin; explicit limits are used as given.
func (s *LocalSigner) applyGas(ctx context.Context, client port.ChainClient, call *entity.ChainCall, overrides *entity.GasOverrides) error {
	const op = "LocalSigner.applyGas"
	if overrides == nil {
		overrides = &entity.GasOverrides{}
	}

	if overrides.GasLimit > 0 {
		call.Gas = overrides.GasLimit
	} else {
		estimate, err := client.EstimateGas(ctx, *call)
		if err != nil {
			return entity.NewError(entity.KindProviderUnavailable, op, "gas estimation failed", err)
		}
		call.Gas = withMargin(estimate, s.cfg.GasSafetyMarginPercent)
	}

	maxFee, err := utils.ParseBigInt(overrides.MaxFeePerGas)
	if err != nil {
		return entity.NewError(entity.KindInvalidInput, op, "maxFeePerGas is invalid", err)
	}
	tip, err := utils.ParseBigInt(overrides.MaxPriorityFeePerGas)
	if err != nil {
		return entity.NewError(entity.KindInvalidInput, op, "maxPriorityFeePerGas is invalid", err)
	}
	if maxFee == nil || tip == nil {
		suggested, err := client.SuggestFees(ctx)
		if err != nil {
			return entity.NewError(entity.KindProviderUnavailable, op, "fee suggestion failed", err)
		}
		if maxFee == nil {
			maxFee = suggested.MaxFeePerGas
		}
		if tip == nil {
			tip = suggested.MaxPriorityFeePerGas
		}
	}
	if maxFee == nil {
		maxFee = new(big.Int)
	}
	if tip == nil {
		tip = new(big.Int)
	}
	if tip.Cmp(maxFee) > 0 {
		tip = new(big.Int).Set(maxFee)
	}
	call.MaxFeePerGas = maxFee
	call.MaxPriorityFeePerGas = tip
	return nil
}

func withMargin(gas uint64, percent int) uint64 {
	if percent <= 0 {
		return gas
	}
	return gas + gas*uint64(percent)/100
}
