// Package chain implements the typed Chain facade for a Solana-style
// network on top of Client: estimate, build, sign, submit.
//
// File: internal/chain/gateway.go
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/associatedtokenaccount"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/cedrosys/paymentcore/internal/observe"
)

// tokenDecimals is the fixed SPL decimals both USDC and USDT use on
// this deployment: raw units are amount × 10^6.
const tokenDecimals = 6

// fallback fee estimates, lamports, used when the fee cannot be
// obtained from GetFeeForMessage (or the message to price cannot be built).
const (
	fallbackFeeExisting = uint64(5_000)
	fallbackFeeWithATA  = uint64(2_044_280)
)

// Gateway implements Chain against a real Solana RPC endpoint.
type Gateway struct {
	client *Client
	logger observe.Logger
	mints  map[Token]solana.PublicKey
}

// NewGateway constructs a Gateway. mints maps each supported Token to
// its SPL mint address on the target cluster.
func NewGateway(client *Client, logger observe.Logger, mints map[Token]solana.PublicKey) *Gateway {
	return &Gateway{client: client, logger: logger, mints: mints}
}

func (g *Gateway) mintFor(t Token) (solana.PublicKey, error) {
	mint, ok := g.mints[t]
	if !ok {
		return solana.PublicKey{}, fmt.Errorf("%w: %s", ErrUnknownToken, t)
	}
	return mint, nil
}

// GenerateKeypair implements Chain.
func (g *Gateway) GenerateKeypair() (string, [64]byte, error) {
	return GenerateKeypair()
}

// rawAmount converts a decimal token amount to the integer raw units
// the SPL token program operates on (amount * 10^tokenDecimals).
func rawAmount(amount decimal.Decimal) uint64 {
	scaled := amount.Shift(tokenDecimals)
	return uint64(scaled.IntPart())
}

func fromRaw(raw uint64) decimal.Decimal {
	return decimal.New(int64(raw), -tokenDecimals).Truncate(tokenDecimals)
}

// TransferToken implements Chain, building, in order, an optional
// create-ATA instruction (paid by the sender) followed by an SPL
// token transfer instruction, and submitting with preflight at
// "confirmed" commitment.
func (g *Gateway) TransferToken(ctx context.Context, secret [64]byte, recipientPub string, amount decimal.Decimal, tok Token) (string, error) {
	if amount.Sign() <= 0 {
		return "", ErrInvalidAmount
	}
	if !validAddress(recipientPub) {
		return "", ErrInvalidAddress
	}

	senderKey := solana.PrivateKey(secret[:])
	sender := senderKey.PublicKey()
	recipient, err := solana.PublicKeyFromBase58(recipientPub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	mint, err := g.mintFor(tok)
	if err != nil {
		return "", err
	}

	senderATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return "", fmt.Errorf("chain: derive sender ata: %w", err)
	}

	senderBalance, err := withRetry(ctx, g.client, g.client.reads, "GetTokenAccountBalance", func(ctx context.Context) (*rpc.GetTokenAccountBalanceResult, error) {
		return g.client.rpc.GetTokenAccountBalance(ctx, senderATA, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return "", fmt.Errorf("chain: read sender balance: %w", err)
	}
	rawSenderBal := uint64(0)
	if senderBalance != nil && senderBalance.Value != nil {
		fmt.Sscanf(senderBalance.Value.Amount, "%d", &rawSenderBal)
	}
	need := rawAmount(amount)
	if rawSenderBal < need {
		return "", ErrInsufficientBalance
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", fmt.Errorf("chain: derive recipient ata: %w", err)
	}
	recipientATAExists, err := g.accountExists(ctx, recipientATA)
	if err != nil {
		return "", fmt.Errorf("chain: check recipient ata: %w", err)
	}

	blockhash, err := withRetry(ctx, g.client, g.client.reads, "GetLatestBlockhash", func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
		return g.client.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return "", fmt.Errorf("chain: get blockhash: %w", err)
	}

	var instructions []solana.Instruction
	if !recipientATAExists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(sender, recipient, mint).Build())
	}
	instructions = append(instructions, token.NewTransferInstruction(need, senderATA, recipientATA, sender, nil).Build())

	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(sender))
	if err != nil {
		return "", fmt.Errorf("chain: build transaction: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(sender) {
			return &senderKey
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("chain: sign transaction: %w", err)
	}

	sig, err := withRetry(ctx, g.client, g.client.writes, "SendTransaction", func(ctx context.Context) (solana.Signature, error) {
		return g.client.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
	})
	if err != nil {
		return "", err
	}
	return sig.String(), nil
}

func (g *Gateway) accountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	info, err := withRetry(ctx, g.client, g.client.reads, "GetAccountInfo", func(ctx context.Context) (*rpc.GetAccountInfoResult, error) {
		return g.client.rpc.GetAccountInfo(ctx, addr)
	})
	if err != nil {
		if isRetryable(err) {
			return false, err
		}
		// Non-retryable "account not found" style errors mean the ATA
		// simply doesn't exist yet.
		return false, nil
	}
	return info != nil && info.Value != nil, nil
}

// GetTokenBalance implements Chain. A missing ATA, or any lookup
// failure, reads as zero rather than surfacing an error.
func (g *Gateway) GetTokenBalance(ctx context.Context, pub string, tok Token) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(pub)
	if err != nil {
		return decimal.Zero, nil
	}
	mint, err := g.mintFor(tok)
	if err != nil {
		return decimal.Zero, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return decimal.Zero, nil
	}
	result, err := withRetry(ctx, g.client, g.client.reads, "GetTokenAccountBalance", func(ctx context.Context) (*rpc.GetTokenAccountBalanceResult, error) {
		return g.client.rpc.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
	})
	if err != nil || result == nil || result.Value == nil {
		return decimal.Zero, nil
	}
	var raw uint64
	fmt.Sscanf(result.Value.Amount, "%d", &raw)
	return fromRaw(raw), nil
}

// GetSOLBalance implements Chain.
func (g *Gateway) GetSOLBalance(ctx context.Context, pub string) (decimal.Decimal, error) {
	owner, err := solana.PublicKeyFromBase58(pub)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	result, err := withRetry(ctx, g.client, g.client.reads, "GetBalance", func(ctx context.Context) (*rpc.GetBalanceResult, error) {
		return g.client.rpc.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(int64(result.Value), -9), nil // lamports -> SOL
}

// EnsureATA implements Chain.
func (g *Gateway) EnsureATA(ctx context.Context, pub string, tok Token, payerSecret *[64]byte) error {
	owner, err := solana.PublicKeyFromBase58(pub)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	mint, err := g.mintFor(tok)
	if err != nil {
		return err
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return fmt.Errorf("chain: derive ata: %w", err)
	}
	exists, err := g.accountExists(ctx, ata)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if payerSecret == nil {
		return ErrATAMissing
	}

	payerKey := solana.PrivateKey(payerSecret[:])
	payer := payerKey.PublicKey()

	blockhash, err := withRetry(ctx, g.client, g.client.reads, "GetLatestBlockhash", func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
		return g.client.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return fmt.Errorf("chain: get blockhash: %w", err)
	}

	ix := associatedtokenaccount.NewCreateInstruction(payer, owner, mint).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, blockhash.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return fmt.Errorf("chain: build create-ata tx: %w", err)
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &payerKey
		}
		return nil
	}); err != nil {
		return fmt.Errorf("chain: sign create-ata tx: %w", err)
	}

	_, err = withRetry(ctx, g.client, g.client.writes, "SendTransaction", func(ctx context.Context) (solana.Signature, error) {
		return g.client.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			PreflightCommitment: rpc.CommitmentConfirmed,
		})
	})
	return err
}

// IsConfirmed implements Chain.
func (g *Gateway) IsConfirmed(ctx context.Context, signature string) (bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return false, fmt.Errorf("chain: parse signature: %w", err)
	}
	statuses, err := withRetry(ctx, g.client, g.client.reads, "GetSignatureStatuses", func(ctx context.Context) (*rpc.GetSignatureStatusesResult, error) {
		return g.client.rpc.GetSignatureStatuses(ctx, true, sig)
	})
	if err != nil {
		return false, err
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return false, nil
	}
	status := statuses.Value[0].ConfirmationStatus
	return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized, nil
}

// GetTxDetails implements Chain.
func (g *Gateway) GetTxDetails(ctx context.Context, signature string) (TxDetails, bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return TxDetails{}, false, fmt.Errorf("chain: parse signature: %w", err)
	}
	maxVersion := uint64(0)
	tx, err := withRetry(ctx, g.client, g.client.reads, "GetTransaction", func(ctx context.Context) (*rpc.GetTransactionResult, error) {
		return g.client.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
	})
	if err != nil {
		return TxDetails{}, false, nil
	}
	if tx == nil {
		return TxDetails{}, false, nil
	}
	details := TxDetails{Slot: tx.Slot}
	if tx.BlockTime != nil {
		details.BlockTime = tx.BlockTime.Time()
	}
	if tx.Meta != nil {
		details.FeeLamports = tx.Meta.Fee
		details.IsSuccess = tx.Meta.Err == nil
	}
	return details, true, nil
}

// EstimateTransferFee implements Chain. It builds the same instruction
// list transfer_token would and asks the network for the fee; any
// simulation failure falls back to a static estimate.
func (g *Gateway) EstimateTransferFee(ctx context.Context, senderPub, recipientPub string, tok Token) (uint64, error) {
	sender, err := solana.PublicKeyFromBase58(senderPub)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	recipient, err := solana.PublicKeyFromBase58(recipientPub)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	mint, err := g.mintFor(tok)
	if err != nil {
		return 0, err
	}

	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return fallbackFeeExisting, nil
	}
	willCreateATA := false
	if exists, err := g.accountExists(ctx, recipientATA); err == nil {
		willCreateATA = !exists
	}

	senderATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return fallbackFeeExisting, nil
	}

	var instructions []solana.Instruction
	if willCreateATA {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(sender, recipient, mint).Build())
	}
	instructions = append(instructions, token.NewTransferInstruction(0, senderATA, recipientATA, sender, nil).Build())

	blockhash, err := withRetry(ctx, g.client, g.client.reads, "GetLatestBlockhash", func(ctx context.Context) (*rpc.GetLatestBlockhashResult, error) {
		return g.client.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
	if err != nil {
		return fallback(willCreateATA), nil
	}

	tx, err := solana.NewTransaction(instructions, blockhash.Value.Blockhash, solana.TransactionPayer(sender))
	if err != nil {
		return fallback(willCreateATA), nil
	}

	feeResult, err := withRetry(ctx, g.client, g.client.reads, "GetFeeForMessage", func(ctx context.Context) (*rpc.GetFeeForMessageResult, error) {
		return g.client.rpc.GetFeeForMessage(ctx, tx.Message.ToBase64(), rpc.CommitmentConfirmed)
	})
	if err != nil || feeResult == nil || feeResult.Value == nil {
		return fallback(willCreateATA), nil
	}
	return *feeResult.Value, nil
}

func fallback(willCreateATA bool) uint64 {
	if willCreateATA {
		return fallbackFeeWithATA
	}
	return fallbackFeeExisting
}

// WaitForConfirmation implements Chain, polling IsConfirmed at a fixed
// interval until confirmed, timeout, or context cancellation.
func (g *Gateway) WaitForConfirmation(ctx context.Context, signature string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		confirmed, err := g.IsConfirmed(ctx, signature)
		if err == nil && confirmed {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// EOF: internal/chain/gateway.go
