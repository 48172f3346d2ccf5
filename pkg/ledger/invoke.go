package ledger

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/solana"
)

// InvokeContext carries the execution state of a single top-level
// instruction, including the stack of cross-program invocations.
type InvokeContext struct {
	log *logrus.Entry

	programs map[string]Program
	maxDepth int

	frames []*frame

	// invoked lists the name of every program that ran, in invocation order
	invoked []string
}

type frame struct {
	program  ed25519.PublicKey
	accounts []*AccountInfo

	keys     []string
	handles  map[string]*AccountInfo
	writable map[string]bool
	pre      map[string]*Account
}

func newInvokeContext(log *logrus.Entry, programs map[string]Program, maxDepth int) *InvokeContext {
	return &InvokeContext{
		log:      log,
		programs: programs,
		maxDepth: maxDepth,
	}
}

// ProgramID returns the id of the currently executing program.
func (ic *InvokeContext) ProgramID() ed25519.PublicKey {
	return ic.current().program
}

// Depth is the number of programs on the invocation stack, including the
// currently executing one.
func (ic *InvokeContext) Depth() int {
	return len(ic.frames)
}

func (ic *InvokeContext) Logger() *logrus.Entry {
	return ic.log
}

// Invoke calls another program with the privileges of the current one.
func (ic *InvokeContext) Invoke(instruction solana.Instruction) error {
	return ic.InvokeSigned(instruction)
}

// InvokeSigned calls another program with the privileges of the current one,
// additionally granting signer privilege to every program derived address of
// the current program that is derived from one of signerSeeds.
//
// Privileges can never be escalated: a writable or signer account of the
// callee must have been writable or a signer for the caller, with the
// derived-address signers as the only exception.
func (ic *InvokeContext) InvokeSigned(instruction solana.Instruction, signerSeeds ...[][]byte) error {
	caller := ic.current()

	if len(ic.frames) >= ic.maxDepth {
		return solana.InstructionErrorCallDepth
	}

	program, ok := ic.programs[string(instruction.Program)]
	if !ok {
		return solana.InstructionErrorUnsupportedProgramID
	}
	if _, ok := caller.handles[string(instruction.Program)]; !ok {
		return solana.InstructionErrorMissingAccount
	}
	// A program may call itself directly, but never re-enter an earlier frame.
	if !bytes.Equal(caller.program, instruction.Program) {
		for _, f := range ic.frames {
			if bytes.Equal(f.program, instruction.Program) {
				return solana.InstructionErrorReentrancyNotAllowed
			}
		}
	}

	pdaSigners := make(map[string]struct{})
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(caller.program, seeds...)
		if err != nil {
			return solana.InstructionErrorInvalidSeeds
		}
		pdaSigners[string(address)] = struct{}{}
	}

	type privileges struct {
		signer   bool
		writable bool
	}
	merged := make(map[string]*privileges)
	for _, meta := range instruction.Accounts {
		handle, ok := caller.handles[string(meta.PublicKey)]
		if !ok {
			ic.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("account missing from caller")
			return solana.InstructionErrorMissingAccount
		}

		if meta.IsWritable && !handle.IsWritable {
			return solana.InstructionErrorPrivilegeEscalation
		}
		if meta.IsSigner && !handle.IsSigner {
			if _, ok := pdaSigners[string(meta.PublicKey)]; !ok {
				return solana.InstructionErrorPrivilegeEscalation
			}
		}

		p, ok := merged[string(meta.PublicKey)]
		if !ok {
			p = &privileges{}
			merged[string(meta.PublicKey)] = p
		}
		p.signer = p.signer || meta.IsSigner
		p.writable = p.writable || meta.IsWritable
	}

	accounts := make([]*AccountInfo, len(instruction.Accounts))
	for i, meta := range instruction.Accounts {
		p := merged[string(meta.PublicKey)]
		accounts[i] = &AccountInfo{
			Key:        caller.handles[string(meta.PublicKey)].Key,
			IsSigner:   p.signer,
			IsWritable: p.writable,
			Account:    caller.handles[string(meta.PublicKey)].Account,
		}
	}

	if err := caller.verify(); err != nil {
		return err
	}

	err := ic.process(program, accounts, instruction.Data)
	caller.snapshot()
	return err
}

// process executes a program within a new invocation frame and verifies the
// changes it made to its accounts.
func (ic *InvokeContext) process(program Program, accounts []*AccountInfo, data []byte) error {
	f := newFrame(program.ProgramID(), accounts)

	ic.frames = append(ic.frames, f)
	ic.invoked = append(ic.invoked, program.Name())
	defer func() {
		ic.frames = ic.frames[:len(ic.frames)-1]
	}()

	if err := program.Process(ic, accounts, data); err != nil {
		return err
	}
	return f.verify()
}

func (ic *InvokeContext) current() *frame {
	return ic.frames[len(ic.frames)-1]
}

func newFrame(program ed25519.PublicKey, accounts []*AccountInfo) *frame {
	f := &frame{
		program:  program,
		accounts: accounts,
		handles:  make(map[string]*AccountInfo),
		writable: make(map[string]bool),
	}

	for _, info := range accounts {
		key := string(info.Key)
		if _, ok := f.handles[key]; !ok {
			f.keys = append(f.keys, key)
			f.handles[key] = info
		}
		f.writable[key] = f.writable[key] || info.IsWritable
	}

	f.snapshot()
	return f
}

func (f *frame) snapshot() {
	f.pre = make(map[string]*Account, len(f.keys))
	for _, key := range f.keys {
		f.pre[key] = f.handles[key].Account.Clone()
	}
}

// verify checks the changes made to the frame's accounts since the last
// snapshot against the rules every program must follow.
func (f *frame) verify() error {
	var preHi, preLo, postHi, postLo uint64

	for _, key := range f.keys {
		pre := f.pre[key]
		post := f.handles[key].Account
		writable := f.writable[key]
		owned := pre.IsOwnedBy(f.program)

		if !bytes.Equal(pre.Owner, post.Owner) {
			if !writable || !owned || pre.Executable || !isZeroed(post.Data) {
				return solana.InstructionErrorModifiedProgramID
			}
		}

		if pre.Lamports != post.Lamports {
			if !writable {
				return solana.InstructionErrorReadonlyLamportChange
			}
			if pre.Executable {
				return solana.InstructionErrorExecutableLamportChange
			}
			if post.Lamports < pre.Lamports && !owned {
				return solana.InstructionErrorExternalAccountLamportSpend
			}
		}

		if !bytes.Equal(pre.Data, post.Data) {
			if !writable {
				return solana.InstructionErrorReadonlyDataModified
			}
			if pre.Executable {
				return solana.InstructionErrorExecutableDataModified
			}
			if !owned {
				return solana.InstructionErrorExternalAccountDataModified
			}
		}

		if pre.Executable != post.Executable {
			return solana.InstructionErrorExecutableModified
		}

		var carry uint64
		preLo, carry = bits.Add64(preLo, pre.Lamports, 0)
		preHi += carry
		postLo, carry = bits.Add64(postLo, post.Lamports, 0)
		postHi += carry
	}

	if preHi != postHi || preLo != postLo {
		return solana.InstructionErrorUnbalancedInstruction
	}
	return nil
}
