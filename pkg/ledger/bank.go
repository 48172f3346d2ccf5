package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/binary"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/escrow/data"
	"github.com/code-payments/escrow-server/pkg/escrow/data/account"
	"github.com/code-payments/escrow-server/pkg/metrics"
	"github.com/code-payments/escrow-server/pkg/retry"
	"github.com/code-payments/escrow-server/pkg/retry/backoff"
	"github.com/code-payments/escrow-server/pkg/solana"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
	"github.com/code-payments/escrow-server/pkg/sync"

	pg "github.com/code-payments/escrow-server/pkg/database/postgres"
)

const (
	metricsStructName = "ledger.bank"

	transactionDurationMetricName = "Ledger/TransactionDuration"
	invocationCountMetricName     = "Ledger/Invocations"

	commitBackoff    = 10 * time.Millisecond
	maxCommitBackoff = 250 * time.Millisecond
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrInvalidTokenAccount = errors.New("account is not an initialized token account")
	ErrInvalidMint         = errors.New("account is not an initialized mint")
	ErrAirdropTooSmall     = errors.New("airdrop leaves account below the rent exempt minimum")
	ErrAirdropNotAllowed   = errors.New("airdrop not allowed")
)

// AccountChange describes how a committed transaction changed an account.
type AccountChange struct {
	Key ed25519.PublicKey

	// Pre is nil when the account didn't exist before the transaction
	Pre  *Account
	Post *Account

	version uint64
}

// CommitHook observes account changes within the same unit of work that
// persists them. Returning an error aborts the commit.
type CommitHook interface {
	OnCommit(ctx context.Context, sig solana.Signature, changes []*AccountChange) error
}

// Bank executes transactions against the persisted ledger state.
type Bank struct {
	log  *logrus.Entry
	conf *conf

	data     data.Provider
	programs map[string]Program
	hooks    []CommitHook

	locks      *sync.StripedLock
	signatures *lru.Cache[solana.Signature, struct{}]
	faucet     ed25519.PrivateKey

	metrics *bankMetrics
}

// NewBank returns a Bank that executes the system, token and associated
// token programs in addition to the provided programs.
func NewBank(data data.Provider, configProvider ConfigProvider, programs ...Program) (*Bank, error) {
	ctx := context.Background()
	conf := configProvider()

	signatures, err := lru.New[solana.Signature, struct{}](int(conf.signatureCacheSize.Get(ctx)))
	if err != nil {
		return nil, errors.Wrap(err, "error initializing signature cache")
	}

	_, faucet, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "error generating faucet key")
	}

	b := &Bank{
		log:        logrus.StandardLogger().WithField("type", "ledger/bank"),
		conf:       conf,
		data:       data,
		programs:   make(map[string]Program),
		locks:      sync.NewStripedLock(uint(conf.lockStripes.Get(ctx))),
		signatures: signatures,
		faucet:     faucet,
		metrics:    newBankMetrics(),
	}

	builtins := []Program{
		NewSystemProgram(),
		NewTokenProgram(),
		NewAssociatedTokenProgram(),
	}
	for _, program := range append(builtins, programs...) {
		key := string(program.ProgramID())
		if _, ok := b.programs[key]; ok {
			return nil, errors.Errorf("program %s registered twice", base58.Encode(program.ProgramID()))
		}
		b.programs[key] = program
	}

	return b, nil
}

// AddCommitHook registers a hook that's notified of every commit. It must be
// called before the Bank processes transactions.
func (b *Bank) AddCommitHook(hook CommitHook) {
	b.hooks = append(b.hooks, hook)
}

// ProcessTransaction executes every instruction of txn and atomically
// persists the result. Failures caused by the transaction itself are returned
// as a *solana.TransactionError, in which case no state has changed.
func (b *Bank) ProcessTransaction(ctx context.Context, txn *solana.Transaction) (sig solana.Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessTransaction")
	defer tracer.End()

	start := time.Now()
	var invoked []string
	defer func() {
		tracer.OnError(err)

		result := transactionResultSuccess
		var txErr *solana.TransactionError
		if errors.As(err, &txErr) {
			result = transactionResultFailed
		} else if err != nil {
			result = transactionResultError
		}
		b.metrics.onTransaction(result, invoked)

		tracer.AddAttributes(map[string]interface{}{
			"result":       result,
			"instructions": len(txn.Message.Instructions),
			"invocations":  len(invoked),
		})
		metrics.RecordDuration(ctx, transactionDurationMetricName, time.Since(start))
		metrics.RecordCount(ctx, invocationCountMetricName, uint64(len(invoked)))
	}()

	if len(txn.Signatures) > 0 {
		sig = txn.Signatures[0]
	}

	log := b.log.WithFields(logrus.Fields{
		"method":    "ProcessTransaction",
		"signature": sig.String(),
	})

	if err := ctx.Err(); err != nil {
		return sig, err
	}

	msg := &txn.Message
	if err := msg.Sanitize(); err != nil {
		log.WithError(err).Debug("transaction failed sanitization")
		return sig, solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if !txn.VerifySignatures() {
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}
	for _, instruction := range msg.Instructions {
		if _, ok := b.programs[string(msg.Accounts[instruction.ProgramIndex])]; !ok {
			return sig, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}
	}

	var writes, reads [][]byte
	for i, key := range msg.Accounts {
		if msg.IsWritable(i) {
			writes = append(writes, key)
		} else {
			reads = append(reads, key)
		}
	}
	unlock := b.locks.LockMany(writes, reads)
	defer unlock()

	if b.signatures.Contains(sig) {
		return sig, solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}

	view, err := b.load(ctx, msg.Accounts)
	if err != nil {
		log.WithError(err).Warn("failure loading accounts")
		return sig, err
	}

	maxDepth := int(b.conf.maxInvokeDepth.Get(ctx))
	for i, instruction := range msg.Instructions {
		program := b.programs[string(msg.Accounts[instruction.ProgramIndex])]

		accounts := make([]*AccountInfo, len(instruction.Accounts))
		for j, index := range instruction.Accounts {
			accounts[j] = &AccountInfo{
				Key:        msg.Accounts[index],
				IsSigner:   msg.IsSigner(int(index)),
				IsWritable: msg.IsWritable(int(index)),
				Account:    view.accounts[index],
			}
		}

		ic := newInvokeContext(log.WithField("instruction", i), b.programs, maxDepth)
		err := ic.process(program, accounts, instruction.Data)
		invoked = append(invoked, ic.invoked...)
		if err != nil {
			log.WithError(err).WithField("instruction", i).Debug("instruction failed")
			return sig, toTransactionError(i, err)
		}
	}

	changes := view.changes(b.programs)
	for _, change := range changes {
		if !isRentExempt(change.Post) {
			return sig, solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForRent)
		}
	}

	if len(changes) > 0 {
		if err := b.commit(ctx, sig, changes); err != nil {
			if errors.Is(err, account.ErrStaleVersion) {
				return sig, solana.NewTransactionError(solana.TransactionErrorAccountInUse)
			}

			log.WithError(err).Warn("failure committing transaction")
			return sig, err
		}
	}

	b.signatures.Add(sig, struct{}{})
	return sig, nil
}

// Airdrop credits lamports to an address out of thin air. The resulting
// balance must be rent exempt.
func (b *Bank) Airdrop(ctx context.Context, address ed25519.PublicKey, lamports uint64) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Airdrop")
	defer tracer.End()

	var sig solana.Signature
	if len(address) != ed25519.PublicKeySize {
		return sig, errors.New("invalid address")
	}
	if _, ok := b.programs[string(address)]; ok {
		return sig, errors.Wrap(ErrAirdropNotAllowed, "cannot airdrop to a program")
	}
	if lamports == 0 {
		return sig, errors.Wrap(ErrAirdropNotAllowed, "lamports must be positive")
	}

	unlock := b.locks.LockMany([][]byte{address}, nil)
	defer unlock()

	view, err := b.load(ctx, []ed25519.PublicKey{address})
	if err != nil {
		return sig, err
	}

	acct := view.accounts[0]
	if acct.Lamports+lamports < acct.Lamports {
		return sig, errors.Wrap(ErrAirdropNotAllowed, "airdrop overflows balance")
	}
	acct.Lamports += lamports
	if !isRentExempt(acct) {
		return sig, ErrAirdropTooSmall
	}

	var message [ed25519.PublicKeySize + 16]byte
	copy(message[:], address)
	binary.LittleEndian.PutUint64(message[ed25519.PublicKeySize:], lamports)
	binary.LittleEndian.PutUint64(message[ed25519.PublicKeySize+8:], uint64(time.Now().UnixNano()))
	copy(sig[:], ed25519.Sign(b.faucet, message[:]))

	err = b.commit(ctx, sig, view.changes(b.programs))
	tracer.OnError(err)
	return sig, err
}

// GetAccount returns the committed state of an account.
func (b *Bank) GetAccount(ctx context.Context, address ed25519.PublicKey) (*Account, error) {
	if _, ok := b.programs[string(address)]; ok {
		return newProgramAccount(), nil
	}

	unlock := b.locks.LockMany(nil, [][]byte{address})
	defer unlock()

	record, err := b.data.GetLedgerAccount(ctx, base58.Encode(address))
	if err == account.ErrAccountNotFound {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, err
	}
	return fromRecord(record)
}

// GetTokenAccount returns the decoded state of an initialized token account.
func (b *Bank) GetTokenAccount(ctx context.Context, address ed25519.PublicKey) (*token.Account, error) {
	acct, err := b.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	var tokenAccount token.Account
	if !acct.IsOwnedBy(token.ProgramKey) || !tokenAccount.Unmarshal(acct.Data) || !tokenAccount.IsInitialized() {
		return nil, ErrInvalidTokenAccount
	}
	return &tokenAccount, nil
}

// GetMint returns the decoded state of an initialized mint.
func (b *Bank) GetMint(ctx context.Context, address ed25519.PublicKey) (*token.Mint, error) {
	acct, err := b.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	var mint token.Mint
	if !acct.IsOwnedBy(token.ProgramKey) || !mint.Unmarshal(acct.Data) || !mint.IsInitialized {
		return nil, ErrInvalidMint
	}
	return &mint, nil
}

// stagedView is the working copy of every account referenced by a transaction.
type stagedView struct {
	keys     []ed25519.PublicKey
	accounts []*Account
	original []*Account
	versions []uint64
}

func (b *Bank) load(ctx context.Context, keys []ed25519.PublicKey) (*stagedView, error) {
	var addresses []string
	for _, key := range keys {
		if _, ok := b.programs[string(key)]; !ok {
			addresses = append(addresses, base58.Encode(key))
		}
	}

	records, err := b.data.GetLedgerAccounts(ctx, addresses...)
	if err != nil {
		return nil, errors.Wrap(err, "error loading accounts")
	}
	byAddress := make(map[string]*account.Record, len(records))
	for _, record := range records {
		byAddress[record.Address] = record
	}

	view := &stagedView{
		keys:     keys,
		accounts: make([]*Account, len(keys)),
		original: make([]*Account, len(keys)),
		versions: make([]uint64, len(keys)),
	}
	for i, key := range keys {
		var acct *Account
		if _, ok := b.programs[string(key)]; ok {
			acct = newProgramAccount()
		} else if record, ok := byAddress[base58.Encode(key)]; ok {
			acct, err = fromRecord(record)
			if err != nil {
				return nil, err
			}
			view.versions[i] = record.Version
		} else {
			acct = NewSystemAccount(0)
		}

		view.accounts[i] = acct
		view.original[i] = acct.Clone()
	}

	return view, nil
}

// changes returns the non-program accounts that differ from when they were
// loaded, in key order.
func (v *stagedView) changes(programs map[string]Program) []*AccountChange {
	var changes []*AccountChange
	for i, key := range v.keys {
		if _, ok := programs[string(key)]; ok {
			continue
		}
		if v.accounts[i].Equal(v.original[i]) {
			continue
		}

		change := &AccountChange{
			Key:     key,
			Post:    v.accounts[i].Clone(),
			version: v.versions[i],
		}
		if v.versions[i] > 0 {
			change.Pre = v.original[i].Clone()
		}
		changes = append(changes, change)
	}
	return changes
}

// commit persists the changed accounts and notifies hooks in a single unit
// of work, retrying serialization failures.
func (b *Bank) commit(ctx context.Context, sig solana.Signature, changes []*AccountChange) error {
	records := make([]*account.Record, len(changes))
	for i, change := range changes {
		records[i] = toRecord(change.Key, change.Post, change.version)
	}

	attempts := b.conf.commitAttempts.Get(ctx)
	if attempts == 0 {
		attempts = 1
	}

	_, err := retry.RetryWithContext(
		ctx,
		func() error {
			err := b.data.ExecuteInTx(ctx, sql.LevelRepeatableRead, func(ctx context.Context) error {
				if err := b.data.SaveLedgerAccounts(ctx, cloneRecords(records)...); err != nil {
					return err
				}

				for _, hook := range b.hooks {
					if err := hook.OnCommit(ctx, sig, changes); err != nil {
						return errors.Wrap(err, "error executing commit hook")
					}
				}
				return nil
			})
			b.metrics.onCommit(err)
			return err
		},
		retry.Limit(uint(attempts)),
		retry.RetriableWhen(pg.IsSerializationFailure),
		retry.BackoffWithJitter(backoff.BinaryExponential(commitBackoff), maxCommitBackoff, 0.1),
	)
	return err
}

func cloneRecords(records []*account.Record) []*account.Record {
	cloned := make([]*account.Record, len(records))
	for i, record := range records {
		c := record.Clone()
		cloned[i] = &c
	}
	return cloned
}

func newProgramAccount() *Account {
	return &Account{
		Owner:      append(ed25519.PublicKey{}, NativeLoaderKey...),
		Lamports:   1,
		Data:       []byte{},
		Executable: true,
	}
}

func isRentExempt(a *Account) bool {
	if a.Lamports == 0 && len(a.Data) == 0 {
		return true
	}
	return system.IsRentExempt(a.Lamports, uint64(len(a.Data)))
}

func toTransactionError(index int, err error) error {
	return solana.TransactionErrorFromInstructionError(solana.NewInstructionError(index, err))
}
