package server

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/code-payments/escrow-server/pkg/database/query"
	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/escrow/data"
	"github.com/code-payments/escrow-server/pkg/escrow/data/offer"
	escrow_program "github.com/code-payments/escrow-server/pkg/escrow/program"
	"github.com/code-payments/escrow-server/pkg/grpc/client"
	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/metrics"
	"github.com/code-payments/escrow-server/pkg/rate"
	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

const (
	submitTransactionEventName = "EscrowTransactionSubmitted"
	airdropEventName           = "EscrowAirdropRequested"
)

type server struct {
	log  *logrus.Entry
	conf *conf

	data data.Provider
	bank *ledger.Bank

	airdropLimiter rate.Limiter

	api.UnimplementedEscrowServer
}

func NewEscrowServer(data data.Provider, bank *ledger.Bank, configProvider ConfigProvider) (api.EscrowServer, error) {
	ctx := context.Background()

	conf := configProvider()

	airdropsPerMinute := conf.airdropsPerMinute.Get(ctx)
	airdropLimiter, err := rate.NewLocalRateLimiter(
		xrate.Limit(float64(airdropsPerMinute)/60),
		int(airdropsPerMinute),
		rate.DefaultMaxKeys,
	)
	if err != nil {
		return nil, err
	}

	return &server{
		log:            logrus.StandardLogger().WithField("type", "escrow/server"),
		conf:           conf,
		data:           data,
		bank:           bank,
		airdropLimiter: airdropLimiter,
	}, nil
}

func (s *server) SubmitTransaction(ctx context.Context, req *api.SubmitTransactionRequest) (*api.SubmitTransactionResponse, error) {
	log := s.log.WithField("method", "SubmitTransaction")
	log = client.InjectLoggingMetadata(ctx, log)

	var txn solana.Transaction
	if err := txn.Unmarshal(req.Transaction); err != nil {
		log.WithError(err).Debug("malformed transaction")
		return &api.SubmitTransactionResponse{
			Result: api.ResultMalformed,
		}, nil
	}

	sig, err := s.bank.ProcessTransaction(ctx, &txn)

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) {
		class := escrow_program.Classify(err)
		log.WithError(err).WithField("class", class).Debug("transaction failed")

		metrics.RecordEvent(ctx, submitTransactionEventName, map[string]interface{}{
			"result": api.ResultTransactionError,
			"class":  string(class),
		})

		return &api.SubmitTransactionResponse{
			Result:    api.ResultTransactionError,
			Signature: sig.String(),
			Error:     toTransactionError(txErr, class),
		}, nil
	} else if err != nil {
		log.WithError(err).Warn("failure processing transaction")
		return nil, status.Error(codes.Internal, "")
	}

	log.WithField("signature", sig.String()).Debug("transaction processed")
	metrics.RecordEvent(ctx, submitTransactionEventName, map[string]interface{}{
		"result": api.ResultOK,
	})

	return &api.SubmitTransactionResponse{
		Result:    api.ResultOK,
		Signature: sig.String(),
	}, nil
}

func (s *server) GetAccountInfo(ctx context.Context, req *api.GetAccountInfoRequest) (*api.GetAccountInfoResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":  "GetAccountInfo",
		"address": req.Address,
	})

	address, err := decodeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	account, err := s.bank.GetAccount(ctx, address)
	if err == ledger.ErrAccountNotFound {
		return &api.GetAccountInfoResponse{
			Result: api.ResultNotFound,
		}, nil
	} else if err != nil {
		log.WithError(err).Warn("failure getting account")
		return nil, status.Error(codes.Internal, "")
	}

	return &api.GetAccountInfoResponse{
		Result: api.ResultOK,
		Account: &api.AccountInfo{
			Address:    req.Address,
			Owner:      base58.Encode(account.Owner),
			Lamports:   account.Lamports,
			Data:       account.Data,
			Executable: account.Executable,
		},
	}, nil
}

func (s *server) GetTokenAccount(ctx context.Context, req *api.GetTokenAccountRequest) (*api.GetTokenAccountResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":  "GetTokenAccount",
		"address": req.Address,
	})

	address, err := decodeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	tokenAccount, err := s.bank.GetTokenAccount(ctx, address)
	switch err {
	case nil:
	case ledger.ErrAccountNotFound:
		return &api.GetTokenAccountResponse{
			Result: api.ResultNotFound,
		}, nil
	case ledger.ErrInvalidTokenAccount:
		return &api.GetTokenAccountResponse{
			Result: api.ResultInvalidAccount,
		}, nil
	default:
		log.WithError(err).Warn("failure getting token account")
		return nil, status.Error(codes.Internal, "")
	}

	return &api.GetTokenAccountResponse{
		Result: api.ResultOK,
		TokenAccount: &api.TokenAccountInfo{
			Address: req.Address,
			Mint:    base58.Encode(tokenAccount.Mint),
			Owner:   base58.Encode(tokenAccount.Owner),
			Amount:  tokenAccount.Amount,
			State:   toAccountStateString(tokenAccount.State),
		},
	}, nil
}

func (s *server) GetMint(ctx context.Context, req *api.GetMintRequest) (*api.GetMintResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":  "GetMint",
		"address": req.Address,
	})

	address, err := decodeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	mint, err := s.bank.GetMint(ctx, address)
	switch err {
	case nil:
	case ledger.ErrAccountNotFound:
		return &api.GetMintResponse{
			Result: api.ResultNotFound,
		}, nil
	case ledger.ErrInvalidMint:
		return &api.GetMintResponse{
			Result: api.ResultInvalidAccount,
		}, nil
	default:
		log.WithError(err).Warn("failure getting mint")
		return nil, status.Error(codes.Internal, "")
	}

	info := &api.MintInfo{
		Address:  req.Address,
		Decimals: mint.Decimals,
		Supply:   mint.Supply,
	}
	if len(mint.MintAuthority) > 0 {
		info.MintAuthority = base58.Encode(mint.MintAuthority)
	}
	if len(mint.FreezeAuthority) > 0 {
		info.FreezeAuthority = base58.Encode(mint.FreezeAuthority)
	}

	return &api.GetMintResponse{
		Result: api.ResultOK,
		Mint:   info,
	}, nil
}

func (s *server) GetOffer(ctx context.Context, req *api.GetOfferRequest) (*api.GetOfferResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "GetOffer",
		"maker":  req.Maker,
		"id":     req.Id,
	})

	record, err := s.data.GetOfferByMakerAndId(ctx, req.Maker, req.Id)
	if err == offer.ErrOfferNotFound {
		return &api.GetOfferResponse{
			Result: api.ResultNotFound,
		}, nil
	} else if err != nil {
		log.WithError(err).Warn("failure getting offer")
		return nil, status.Error(codes.Internal, "")
	}

	info, err := s.toOfferInfo(ctx, record)
	if err != nil {
		log.WithError(err).Warn("failure getting vault balance")
		return nil, status.Error(codes.Internal, "")
	}

	return &api.GetOfferResponse{
		Result: api.ResultOK,
		Offer:  info,
	}, nil
}

func (s *server) GetOffersByMaker(ctx context.Context, req *api.GetOffersByMakerRequest) (*api.GetOffersByMakerResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method": "GetOffersByMaker",
		"maker":  req.Maker,
	})

	limit := req.Limit
	if limit == 0 {
		limit = api.MaxOffersPageSize
	}

	opts := []query.Option{
		query.WithLimit(limit),
	}
	if req.Cursor > 0 {
		opts = append(opts, query.WithCursor(query.ToCursor(req.Cursor)))
	}
	if req.Descending {
		opts = append(opts, query.WithDirection(query.Descending))
	}

	records, err := s.data.GetAllOffersByMaker(ctx, req.Maker, opts...)
	if err == offer.ErrOfferNotFound {
		return &api.GetOffersByMakerResponse{
			Result: api.ResultNotFound,
		}, nil
	} else if err != nil {
		log.WithError(err).Warn("failure getting offers")
		return nil, status.Error(codes.Internal, "")
	}

	offers := make([]*api.OfferInfo, len(records))
	for i, record := range records {
		offers[i], err = s.toOfferInfo(ctx, record)
		if err != nil {
			log.WithError(err).Warn("failure getting vault balance")
			return nil, status.Error(codes.Internal, "")
		}
	}

	return &api.GetOffersByMakerResponse{
		Result:     api.ResultOK,
		Offers:     offers,
		NextCursor: records[len(records)-1].Id,
	}, nil
}

func (s *server) RequestAirdrop(ctx context.Context, req *api.RequestAirdropRequest) (*api.RequestAirdropResponse, error) {
	log := s.log.WithFields(logrus.Fields{
		"method":   "RequestAirdrop",
		"address":  req.Address,
		"lamports": req.Lamports,
	})
	log = client.InjectLoggingMetadata(ctx, log)

	address, err := decodeAddress(req.Address)
	if err != nil {
		return nil, err
	}

	if !s.conf.enableAirdrops.Get(ctx) {
		return &api.RequestAirdropResponse{
			Result: api.ResultDisabled,
		}, nil
	}

	if req.Lamports > s.conf.maxAirdropLamports.Get(ctx) {
		return &api.RequestAirdropResponse{
			Result: api.ResultDenied,
		}, nil
	}

	allowed, err := s.airdropLimiter.Allow(req.Address)
	if err != nil {
		log.WithError(err).Warn("failure checking rate limit")
		return nil, status.Error(codes.Internal, "")
	} else if !allowed {
		return &api.RequestAirdropResponse{
			Result: api.ResultRateLimited,
		}, nil
	}

	sig, err := s.bank.Airdrop(ctx, address, req.Lamports)
	if cause := errors.Cause(err); cause == ledger.ErrAirdropTooSmall || cause == ledger.ErrAirdropNotAllowed {
		return &api.RequestAirdropResponse{
			Result: api.ResultDenied,
		}, nil
	} else if err != nil {
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			log.WithError(err).Debug("airdrop rejected")
			return &api.RequestAirdropResponse{
				Result: api.ResultDenied,
			}, nil
		}

		log.WithError(err).Warn("failure airdropping")
		return nil, status.Error(codes.Internal, "")
	}

	log.WithField("signature", sig.String()).Debug("airdrop processed")
	metrics.RecordEvent(ctx, airdropEventName, map[string]interface{}{
		"lamports": req.Lamports,
	})

	return &api.RequestAirdropResponse{
		Result:    api.ResultOK,
		Signature: sig.String(),
	}, nil
}

func (s *server) toOfferInfo(ctx context.Context, record *offer.Record) (*api.OfferInfo, error) {
	info := &api.OfferInfo{
		Address:            record.Address,
		Vault:              record.Vault,
		Maker:              record.Maker,
		Id:                 record.OfferId,
		TokenMintA:         record.TokenMintA,
		TokenMintB:         record.TokenMintB,
		TokenBWantedAmount: record.TokenBWantedAmount,
		Bump:               record.Bump,
		Signature:          record.Signature,
		CreatedAt:          record.CreatedAt,
	}

	vault, err := base58.Decode(record.Vault)
	if err != nil {
		return nil, err
	}

	tokenAccount, err := s.bank.GetTokenAccount(ctx, vault)
	if err != nil {
		return nil, err
	}
	info.VaultBalance = tokenAccount.Amount

	return info, nil
}

func toTransactionError(txErr *solana.TransactionError, class escrow_program.ErrorClass) *api.TransactionError {
	res := &api.TransactionError{
		Key:     string(txErr.ErrorKey()),
		Class:   string(class),
		Message: txErr.Error(),
	}

	if instructionErr := txErr.InstructionError(); instructionErr != nil {
		index := instructionErr.Index
		res.InstructionIndex = &index
		res.Key = string(instructionErr.ErrorKey())

		if custom := instructionErr.CustomError(); custom != nil {
			code := uint32(*custom)
			res.CustomCode = &code
		}
	}

	return res
}

func toAccountStateString(state token.AccountState) string {
	switch state {
	case token.AccountStateInitialized:
		return "initialized"
	case token.AccountStateFrozen:
		return "frozen"
	default:
		return "uninitialized"
	}
}

func decodeAddress(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, status.Error(codes.InvalidArgument, "invalid address")
	}
	return decoded, nil
}
