package server

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/escrow/indexer"
	escrow_program "github.com/code-payments/escrow-server/pkg/escrow/program"
	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
	"github.com/code-payments/escrow-server/pkg/testutil"
)

func TestSubmitTransaction_MakeOfferAndExchange(t *testing.T) {
	env := setup(t, &testOverrides{})

	ctx := context.Background()

	makeOfferAccounts, err := escrow.MakeOfferInstructionAccountsFor(env.makerKey(), env.mintA, env.mintB, 1)
	require.NoError(t, err)

	resp, err := env.client.SubmitTransaction(ctx, &api.SubmitTransactionRequest{
		Transaction: env.signedTransaction(t, []ed25519.PrivateKey{env.maker}, escrow.NewMakeOfferInstruction(
			makeOfferAccounts,
			&escrow.MakeOfferInstructionArgs{Id: 1, TokenAOfferedAmount: 100, TokenBWantedAmount: 50},
		)),
	})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	assert.Nil(t, resp.Error)
	assert.NotEmpty(t, resp.Signature)

	offerResp, err := env.client.GetOffer(ctx, &api.GetOfferRequest{Maker: base58.Encode(env.makerKey()), Id: 1})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, offerResp.Result)
	assert.Equal(t, base58.Encode(makeOfferAccounts.Offer), offerResp.Offer.Address)
	assert.Equal(t, base58.Encode(makeOfferAccounts.Vault), offerResp.Offer.Vault)
	assert.Equal(t, base58.Encode(env.mintA), offerResp.Offer.TokenMintA)
	assert.Equal(t, base58.Encode(env.mintB), offerResp.Offer.TokenMintB)
	assert.EqualValues(t, 1, offerResp.Offer.Id)
	assert.EqualValues(t, 50, offerResp.Offer.TokenBWantedAmount)
	assert.EqualValues(t, 100, offerResp.Offer.VaultBalance)
	assert.Equal(t, resp.Signature, offerResp.Offer.Signature)

	exchangeAccounts, err := escrow.ExchangeInstructionAccountsFor(env.makerKey(), env.takerKey(), env.mintA, env.mintB)
	require.NoError(t, err)

	resp, err = env.client.SubmitTransaction(ctx, &api.SubmitTransactionRequest{
		Transaction: env.signedTransaction(t, []ed25519.PrivateKey{env.taker, env.maker}, escrow.NewExchangeInstruction(
			exchangeAccounts,
			&escrow.ExchangeInstructionArgs{TokenAAmount: 100, TokenBAmount: 50},
		)),
	})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)

	for address, expected := range map[string]uint64{
		base58.Encode(exchangeAccounts.MakerTokenAccountA): 800,
		base58.Encode(exchangeAccounts.TakerTokenAccountA): 100,
		base58.Encode(exchangeAccounts.MakerTokenAccountB): 50,
		base58.Encode(exchangeAccounts.TakerTokenAccountB): 50,
	} {
		tokenResp, err := env.client.GetTokenAccount(ctx, &api.GetTokenAccountRequest{Address: address})
		require.NoError(t, err)
		require.Equal(t, api.ResultOK, tokenResp.Result)
		assert.Equal(t, expected, tokenResp.TokenAccount.Amount)
		assert.Equal(t, "initialized", tokenResp.TokenAccount.State)
	}
}

func TestSubmitTransaction_TransactionError(t *testing.T) {
	env := setup(t, &testOverrides{})

	ctx := context.Background()

	makeOffer := func(amountA uint64) *api.SubmitTransactionResponse {
		accounts, err := escrow.MakeOfferInstructionAccountsFor(env.makerKey(), env.mintA, env.mintB, 1)
		require.NoError(t, err)

		resp, err := env.client.SubmitTransaction(ctx, &api.SubmitTransactionRequest{
			Transaction: env.signedTransaction(t, []ed25519.PrivateKey{env.maker}, escrow.NewMakeOfferInstruction(
				accounts,
				&escrow.MakeOfferInstructionArgs{Id: 1, TokenAOfferedAmount: amountA, TokenBWantedAmount: 50},
			)),
		})
		require.NoError(t, err)
		return resp
	}

	logs := testutil.CaptureLogs(t)

	resp := makeOffer(10_000)
	require.Equal(t, api.ResultTransactionError, resp.Result)
	require.NotNil(t, resp.Error)
	require.NotNil(t, resp.Error.InstructionIndex)
	assert.Equal(t, 0, *resp.Error.InstructionIndex)
	assert.Equal(t, string(solana.InstructionErrorCustom), resp.Error.Key)
	require.NotNil(t, resp.Error.CustomCode)
	assert.EqualValues(t, token.ErrorInsufficientFunds, *resp.Error.CustomCode)
	assert.Equal(t, string(escrow_program.ErrorClassResource), resp.Error.Class)

	entry, ok := testutil.FindLogEntry(logs, "transaction failed")
	require.True(t, ok)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, escrow_program.ErrorClassResource, entry.Data["class"])

	offerResp, err := env.client.GetOffer(ctx, &api.GetOfferRequest{Maker: base58.Encode(env.makerKey()), Id: 1})
	require.NoError(t, err)
	assert.Equal(t, api.ResultNotFound, offerResp.Result)

	resp = makeOffer(100)
	require.Equal(t, api.ResultOK, resp.Result)

	resp = makeOffer(100)
	require.Equal(t, api.ResultTransactionError, resp.Result)
	require.NotNil(t, resp.Error.CustomCode)
	assert.EqualValues(t, system.ErrorAccountAlreadyInUse, *resp.Error.CustomCode)

	// Signature verification happens before any instruction executes
	txn := solana.NewTransaction(env.takerKey(), system.Transfer(env.takerKey(), env.makerKey(), 1))
	resp, err = env.client.SubmitTransaction(ctx, &api.SubmitTransactionRequest{Transaction: txn.Marshal()})
	require.NoError(t, err)
	require.Equal(t, api.ResultTransactionError, resp.Result)
	assert.Nil(t, resp.Error.InstructionIndex)
	assert.Equal(t, string(solana.TransactionErrorSignatureFailure), resp.Error.Key)
	assert.Equal(t, string(escrow_program.ErrorClassAuthorization), resp.Error.Class)
}

func TestSubmitTransaction_Malformed(t *testing.T) {
	env := setup(t, &testOverrides{})

	resp, err := env.client.SubmitTransaction(context.Background(), &api.SubmitTransactionRequest{Transaction: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, api.ResultMalformed, resp.Result)

	_, err = env.client.SubmitTransaction(context.Background(), &api.SubmitTransactionRequest{})
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)
}

func TestGetAccountInfo(t *testing.T) {
	env := setup(t, &testOverrides{})

	ctx := context.Background()

	resp, err := env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: base58.Encode(newKey(t))})
	require.NoError(t, err)
	assert.Equal(t, api.ResultNotFound, resp.Result)

	resp, err = env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: base58.Encode(env.makerKey())})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	assert.Equal(t, base58.Encode(system.ProgramKey[:]), resp.Account.Owner)
	assert.Less(t, resp.Account.Lamports, uint64(ledger.DefaultTestLamports))
	assert.Positive(t, resp.Account.Lamports)
	assert.False(t, resp.Account.Executable)

	resp, err = env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: base58.Encode(escrow.PROGRAM_ID)})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	assert.True(t, resp.Account.Executable)

	resp, err = env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: base58.Encode(env.mintA)})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	assert.Equal(t, base58.Encode(token.ProgramKey), resp.Account.Owner)
	assert.Len(t, resp.Account.Data, token.MintSize)

	_, err = env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: "invalid"})
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)
}

func TestGetTokenAccountAndMint(t *testing.T) {
	env := setup(t, &testOverrides{})

	ctx := context.Background()

	mintResp, err := env.client.GetMint(ctx, &api.GetMintRequest{Address: base58.Encode(env.mintA)})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, mintResp.Result)
	assert.EqualValues(t, 6, mintResp.Mint.Decimals)
	assert.EqualValues(t, 1000, mintResp.Mint.Supply)
	assert.Equal(t, base58.Encode(env.authorityKey()), mintResp.Mint.MintAuthority)
	assert.Empty(t, mintResp.Mint.FreezeAuthority)

	mintResp, err = env.client.GetMint(ctx, &api.GetMintRequest{Address: base58.Encode(env.makerTokenAccountA)})
	require.NoError(t, err)
	assert.Equal(t, api.ResultInvalidAccount, mintResp.Result)

	mintResp, err = env.client.GetMint(ctx, &api.GetMintRequest{Address: base58.Encode(newKey(t))})
	require.NoError(t, err)
	assert.Equal(t, api.ResultNotFound, mintResp.Result)

	tokenResp, err := env.client.GetTokenAccount(ctx, &api.GetTokenAccountRequest{Address: base58.Encode(env.makerTokenAccountA)})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, tokenResp.Result)
	assert.Equal(t, base58.Encode(env.mintA), tokenResp.TokenAccount.Mint)
	assert.Equal(t, base58.Encode(env.makerKey()), tokenResp.TokenAccount.Owner)
	assert.EqualValues(t, 1000, tokenResp.TokenAccount.Amount)

	tokenResp, err = env.client.GetTokenAccount(ctx, &api.GetTokenAccountRequest{Address: base58.Encode(env.mintA)})
	require.NoError(t, err)
	assert.Equal(t, api.ResultInvalidAccount, tokenResp.Result)

	tokenResp, err = env.client.GetTokenAccount(ctx, &api.GetTokenAccountRequest{Address: base58.Encode(newKey(t))})
	require.NoError(t, err)
	assert.Equal(t, api.ResultNotFound, tokenResp.Result)
}

func TestGetOffersByMaker(t *testing.T) {
	env := setup(t, &testOverrides{})

	ctx := context.Background()
	maker := base58.Encode(env.makerKey())

	resp, err := env.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{Maker: maker})
	require.NoError(t, err)
	assert.Equal(t, api.ResultNotFound, resp.Result)

	for id := uint64(1); id <= 3; id++ {
		accounts, err := escrow.MakeOfferInstructionAccountsFor(env.makerKey(), env.mintA, env.mintB, id)
		require.NoError(t, err)

		_, err = env.Submit(t, []ed25519.PrivateKey{env.maker}, escrow.NewMakeOfferInstruction(
			accounts,
			&escrow.MakeOfferInstructionArgs{Id: id, TokenAOfferedAmount: 10 * id, TokenBWantedAmount: id},
		))
		require.NoError(t, err)
	}

	resp, err = env.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{Maker: maker, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	require.Len(t, resp.Offers, 2)
	assert.EqualValues(t, 1, resp.Offers[0].Id)
	assert.EqualValues(t, 10, resp.Offers[0].VaultBalance)
	assert.EqualValues(t, 2, resp.Offers[1].Id)
	assert.EqualValues(t, 20, resp.Offers[1].VaultBalance)

	resp, err = env.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{Maker: maker, Limit: 2, Cursor: resp.NextCursor})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	require.Len(t, resp.Offers, 1)
	assert.EqualValues(t, 3, resp.Offers[0].Id)

	resp, err = env.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{Maker: maker, Descending: true})
	require.NoError(t, err)
	require.Len(t, resp.Offers, 3)
	assert.EqualValues(t, 3, resp.Offers[0].Id)
	assert.EqualValues(t, 1, resp.Offers[2].Id)

	_, err = env.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{Maker: maker, Limit: api.MaxOffersPageSize + 1})
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)
}

func TestRequestAirdrop(t *testing.T) {
	env := setup(t, &testOverrides{
		enableAirdrops:     true,
		maxAirdropLamports: 5_000_000_000,
		airdropsPerMinute:  2,
	})

	ctx := context.Background()
	address := base58.Encode(newKey(t))

	resp, err := env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: address, Lamports: 5_000_000_001})
	require.NoError(t, err)
	assert.Equal(t, api.ResultDenied, resp.Result)

	resp, err = env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: address, Lamports: 1})
	require.NoError(t, err)
	assert.Equal(t, api.ResultDenied, resp.Result)

	resp, err = env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: address, Lamports: 1_000_000_000})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, resp.Result)
	assert.NotEmpty(t, resp.Signature)

	accountResp, err := env.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: address})
	require.NoError(t, err)
	require.Equal(t, api.ResultOK, accountResp.Result)
	assert.EqualValues(t, 1_000_000_000, accountResp.Account.Lamports)

	resp, err = env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: address, Lamports: 1_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, api.ResultRateLimited, resp.Result)

	resp, err = env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: base58.Encode(escrow.PROGRAM_ID), Lamports: 1_000_000_000})
	require.NoError(t, err)
	assert.Equal(t, api.ResultDenied, resp.Result)

	_, err = env.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{Address: address})
	testutil.AssertStatusErrorWithCode(t, err, codes.InvalidArgument)
}

func TestRequestAirdrop_Disabled(t *testing.T) {
	env := setup(t, &testOverrides{})

	resp, err := env.client.RequestAirdrop(context.Background(), &api.RequestAirdropRequest{
		Address:  base58.Encode(newKey(t)),
		Lamports: 1_000_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, api.ResultDisabled, resp.Result)
}

type testEnv struct {
	*ledger.TestEnv

	client api.EscrowClient

	authority ed25519.PrivateKey
	maker     ed25519.PrivateKey
	taker     ed25519.PrivateKey

	mintA ed25519.PublicKey
	mintB ed25519.PublicKey

	makerTokenAccountA ed25519.PublicKey
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	env := &testEnv{
		TestEnv: ledger.NewTestEnv(t, escrow_program.New()),
	}
	env.Bank.AddCommitHook(indexer.NewOfferHandler(env.Data))

	env.authority = env.NewFundedKey(t)
	env.maker = env.NewFundedKey(t)
	env.taker = env.NewFundedKey(t)

	env.mintA = env.CreateMint(t, env.authority, 6)
	env.mintB = env.CreateMint(t, env.authority, 6)

	env.makerTokenAccountA = env.CreateAssociatedAccount(t, env.maker, env.makerKey(), env.mintA)
	takerTokenAccountB := env.CreateAssociatedAccount(t, env.taker, env.takerKey(), env.mintB)

	env.MintTo(t, env.authority, env.mintA, env.makerTokenAccountA, 1000)
	env.MintTo(t, env.authority, env.mintB, takerTokenAccountB, 100)

	s, err := NewEscrowServer(env.Data, env.Bank, withManualTestOverrides(overrides))
	require.NoError(t, err)

	conn := testutil.StartServer(t, func(server *grpc.Server) {
		api.RegisterEscrowServer(server, s)
	})
	env.client = api.NewEscrowClient(conn)

	return env
}

func (e *testEnv) authorityKey() ed25519.PublicKey {
	return e.authority.Public().(ed25519.PublicKey)
}

func (e *testEnv) makerKey() ed25519.PublicKey {
	return e.maker.Public().(ed25519.PublicKey)
}

func (e *testEnv) takerKey() ed25519.PublicKey {
	return e.taker.Public().(ed25519.PublicKey)
}

func (e *testEnv) signedTransaction(t *testing.T, signers []ed25519.PrivateKey, instructions ...solana.Instruction) []byte {
	txn := solana.NewTransaction(signers[0].Public().(ed25519.PublicKey), instructions...)

	var blockhash solana.Blockhash
	_, err := rand.Read(blockhash[:])
	require.NoError(t, err)
	txn.SetBlockhash(blockhash)

	require.NoError(t, txn.Sign(signers...))
	return txn.Marshal()
}

func newKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
