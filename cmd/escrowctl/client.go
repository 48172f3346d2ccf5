package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/grpc/validation"
	"github.com/code-payments/escrow-server/pkg/retry"
	"github.com/code-payments/escrow-server/pkg/retry/backoff"
	"github.com/code-payments/escrow-server/pkg/solana"
)

const (
	maxRetries = 3
)

type session struct {
	ctx    context.Context
	conn   *grpc.ClientConn
	client api.EscrowClient
}

func newSession(cmd *cobra.Command, flags *globalFlags) (*session, func(), error) {
	conn, err := grpc.NewClient(
		flags.server,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(validation.UnaryClientInterceptor()),
	)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error dialing %s", flags.server)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
	s := &session{
		ctx:    ctx,
		conn:   conn,
		client: api.NewEscrowClient(conn),
	}

	return s, func() {
		cancel()
		conn.Close()
	}, nil
}

// call retries fn while escrowd is unreachable
func (s *session) call(fn func(ctx context.Context) error) error {
	_, err := retry.RetryWithContext(
		s.ctx,
		func() error { return fn(s.ctx) },
		retry.Limit(maxRetries),
		retry.RetriableGRPCCodes(codes.Unavailable),
		retry.Backoff(backoff.BinaryExponential(250*time.Millisecond), 2*time.Second),
	)
	return err
}

// submit signs a transaction paid for by the first signer and submits it.
func (s *session) submit(signers []ed25519.PrivateKey, instructions ...solana.Instruction) (*api.SubmitTransactionResponse, error) {
	txn := solana.NewTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)

	var blockhash solana.Blockhash
	if _, err := rand.Read(blockhash[:]); err != nil {
		return nil, err
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(signers...); err != nil {
		return nil, errors.Wrap(err, "error signing transaction")
	}

	var resp *api.SubmitTransactionResponse
	err := s.call(func(ctx context.Context) (err error) {
		resp, err = s.client.SubmitTransaction(ctx, &api.SubmitTransactionRequest{Transaction: txn.Marshal()})
		return err
	})
	if err != nil {
		return nil, err
	}

	if resp.Result != api.ResultOK {
		return resp, submitError(resp)
	}
	return resp, nil
}

func submitError(resp *api.SubmitTransactionResponse) error {
	if resp.Error == nil {
		return errors.Errorf("transaction rejected: %s", resp.Result)
	}

	txErr := resp.Error
	switch {
	case txErr.InstructionIndex != nil && txErr.CustomCode != nil:
		return errors.Errorf("instruction %d failed with custom error %d (%s)", *txErr.InstructionIndex, *txErr.CustomCode, txErr.Class)
	case txErr.InstructionIndex != nil:
		return errors.Errorf("instruction %d failed: %s (%s)", *txErr.InstructionIndex, txErr.Key, txErr.Class)
	default:
		return errors.Errorf("transaction failed: %s (%s)", txErr.Key, txErr.Class)
	}
}

func parsePrivateKey(name, value string) (ed25519.PrivateKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s key", name)
	}

	switch len(decoded) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(decoded), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(decoded), nil
	default:
		return nil, errors.Errorf("invalid %s key: expected %d or %d bytes, got %d", name, ed25519.SeedSize, ed25519.PrivateKeySize, len(decoded))
	}
}

func parsePublicKey(name, value string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s address", name)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid %s address: expected %d bytes, got %d", name, ed25519.PublicKeySize, len(decoded))
	}
	return decoded, nil
}

func publicKey(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
