package api

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// MaxOffersPageSize is the largest page GetOffersByMaker returns.
const MaxOffersPageSize = 100

// Result codes shared by the Escrow RPCs. Each response documents which of
// them it can return.
const (
	ResultOK               = "OK"
	ResultNotFound         = "NOT_FOUND"
	ResultInvalidAccount   = "INVALID_ACCOUNT"
	ResultTransactionError = "TRANSACTION_ERROR"
	ResultMalformed        = "MALFORMED"
	ResultDisabled         = "DISABLED"
	ResultRateLimited      = "RATE_LIMITED"
	ResultDenied           = "DENIED"
)

type SubmitTransactionRequest struct {
	// Transaction is the signed wire transaction
	Transaction []byte `json:"transaction"`
}

func (r *SubmitTransactionRequest) Validate() error {
	if len(r.Transaction) == 0 {
		return errors.New("transaction is required")
	}
	return nil
}

// SubmitTransactionResponse results: OK, TRANSACTION_ERROR, MALFORMED
type SubmitTransactionResponse struct {
	Result    string            `json:"result"`
	Signature string            `json:"signature,omitempty"`
	Error     *TransactionError `json:"error,omitempty"`
}

func (r *SubmitTransactionResponse) GetResult() string {
	return r.Result
}

// TransactionError describes why the ledger rejected a transaction.
type TransactionError struct {
	// Key is the transaction error key, or the instruction error key when
	// InstructionIndex is set.
	Key              string  `json:"key"`
	InstructionIndex *int    `json:"instruction_index,omitempty"`
	CustomCode       *uint32 `json:"custom_code,omitempty"`
	Class            string  `json:"class"`
	Message          string  `json:"message"`
}

type GetAccountInfoRequest struct {
	Address string `json:"address"`
}

func (r *GetAccountInfoRequest) Validate() error {
	return validateAddress("address", r.Address)
}

// GetAccountInfoResponse results: OK, NOT_FOUND
type GetAccountInfoResponse struct {
	Result  string       `json:"result"`
	Account *AccountInfo `json:"account,omitempty"`
}

func (r *GetAccountInfoResponse) GetResult() string {
	return r.Result
}

type AccountInfo struct {
	Address    string `json:"address"`
	Owner      string `json:"owner"`
	Lamports   uint64 `json:"lamports"`
	Data       []byte `json:"data"`
	Executable bool   `json:"executable"`
}

type GetTokenAccountRequest struct {
	Address string `json:"address"`
}

func (r *GetTokenAccountRequest) Validate() error {
	return validateAddress("address", r.Address)
}

// GetTokenAccountResponse results: OK, NOT_FOUND, INVALID_ACCOUNT
type GetTokenAccountResponse struct {
	Result       string            `json:"result"`
	TokenAccount *TokenAccountInfo `json:"token_account,omitempty"`
}

func (r *GetTokenAccountResponse) GetResult() string {
	return r.Result
}

type TokenAccountInfo struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  uint64 `json:"amount"`
	State   string `json:"state"`
}

type GetMintRequest struct {
	Address string `json:"address"`
}

func (r *GetMintRequest) Validate() error {
	return validateAddress("address", r.Address)
}

// GetMintResponse results: OK, NOT_FOUND, INVALID_ACCOUNT
type GetMintResponse struct {
	Result string    `json:"result"`
	Mint   *MintInfo `json:"mint,omitempty"`
}

func (r *GetMintResponse) GetResult() string {
	return r.Result
}

type MintInfo struct {
	Address         string `json:"address"`
	Decimals        uint8  `json:"decimals"`
	Supply          uint64 `json:"supply"`
	MintAuthority   string `json:"mint_authority,omitempty"`
	FreezeAuthority string `json:"freeze_authority,omitempty"`
}

type GetOfferRequest struct {
	Maker string `json:"maker"`
	Id    uint64 `json:"id"`
}

func (r *GetOfferRequest) Validate() error {
	return validateAddress("maker", r.Maker)
}

// GetOfferResponse results: OK, NOT_FOUND
type GetOfferResponse struct {
	Result string     `json:"result"`
	Offer  *OfferInfo `json:"offer,omitempty"`
}

func (r *GetOfferResponse) GetResult() string {
	return r.Result
}

type OfferInfo struct {
	Address            string    `json:"address"`
	Vault              string    `json:"vault"`
	Maker              string    `json:"maker"`
	Id                 uint64    `json:"id"`
	TokenMintA         string    `json:"token_mint_a"`
	TokenMintB         string    `json:"token_mint_b"`
	TokenBWantedAmount uint64    `json:"token_b_wanted_amount"`
	Bump               uint8     `json:"bump"`
	VaultBalance       uint64    `json:"vault_balance"`
	Signature          string    `json:"signature"`
	CreatedAt          time.Time `json:"created_at"`
}

type GetOffersByMakerRequest struct {
	Maker string `json:"maker"`

	// Cursor is the NextCursor of the previous page, or zero for the first page
	Cursor     uint64 `json:"cursor,omitempty"`
	Limit      uint64 `json:"limit,omitempty"`
	Descending bool   `json:"descending,omitempty"`
}

func (r *GetOffersByMakerRequest) Validate() error {
	if err := validateAddress("maker", r.Maker); err != nil {
		return err
	}
	if r.Limit > MaxOffersPageSize {
		return errors.Errorf("limit cannot exceed %d", MaxOffersPageSize)
	}
	return nil
}

// GetOffersByMakerResponse results: OK, NOT_FOUND
type GetOffersByMakerResponse struct {
	Result     string       `json:"result"`
	Offers     []*OfferInfo `json:"offers,omitempty"`
	NextCursor uint64       `json:"next_cursor,omitempty"`
}

func (r *GetOffersByMakerResponse) GetResult() string {
	return r.Result
}

type RequestAirdropRequest struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`
}

func (r *RequestAirdropRequest) Validate() error {
	if err := validateAddress("address", r.Address); err != nil {
		return err
	}
	if r.Lamports == 0 {
		return errors.New("lamports must be positive")
	}
	return nil
}

// RequestAirdropResponse results: OK, DISABLED, RATE_LIMITED, DENIED
type RequestAirdropResponse struct {
	Result    string `json:"result"`
	Signature string `json:"signature,omitempty"`
}

func (r *RequestAirdropResponse) GetResult() string {
	return r.Result
}

func validateAddress(field, value string) error {
	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return errors.Errorf("%s must be a base58 encoded public key", field)
	}
	return nil
}
