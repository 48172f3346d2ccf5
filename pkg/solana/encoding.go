package solana

import (
	"bytes"
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"

	"github.com/code-payments/escrow-server/pkg/solana/shortvec"
)

// Wire format of a legacy transaction:
//
//	shortvec(len(signatures)) signatures...
//	header(3 bytes) shortvec(len(accounts)) accounts... blockhash(32)
//	shortvec(len(instructions)) { program index, shortvec accounts, shortvec data }...
//
// Writes to a bytes.Buffer never fail, so their errors are ignored.

func (t Transaction) Marshal() []byte {
	var buf bytes.Buffer

	_, _ = shortvec.EncodeLen(&buf, len(t.Signatures))
	for _, sig := range t.Signatures {
		buf.Write(sig[:])
	}
	buf.Write(t.Message.Marshal())

	return buf.Bytes()
}

func (t *Transaction) Unmarshal(b []byte) error {
	if len(b) > MaxTransactionSize {
		return errors.Errorf("transaction exceeds max size: %d", len(b))
	}

	r := bytes.NewReader(b)

	count, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read signature count")
	}
	t.Signatures = make([]Signature, count)
	for i := range t.Signatures {
		if _, err := io.ReadFull(r, t.Signatures[i][:]); err != nil {
			return errors.Wrapf(err, "failed to read signature %d", i)
		}
	}

	rest := make([]byte, r.Len())
	_, _ = r.Read(rest)
	return t.Message.Unmarshal(rest)
}

func (m Message) Marshal() []byte {
	var buf bytes.Buffer

	buf.Write([]byte{m.Header.NumSignatures, m.Header.NumReadonlySigned, m.Header.NumReadOnly})

	_, _ = shortvec.EncodeLen(&buf, len(m.Accounts))
	for _, account := range m.Accounts {
		buf.Write(account)
	}

	buf.Write(m.RecentBlockhash[:])

	_, _ = shortvec.EncodeLen(&buf, len(m.Instructions))
	for _, instruction := range m.Instructions {
		buf.WriteByte(instruction.ProgramIndex)
		writeBytes(&buf, instruction.Accounts)
		writeBytes(&buf, instruction.Data)
	}

	return buf.Bytes()
}

func (m *Message) Unmarshal(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty message")
	}
	// The high bit of the first byte marks a versioned message.
	if b[0]&0x80 != 0 {
		return errors.New("versioned messages not supported")
	}

	r := bytes.NewReader(b)

	var header [3]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return errors.Wrap(err, "failed to read message header")
	}
	m.Header = Header{
		NumSignatures:     header[0],
		NumReadonlySigned: header[1],
		NumReadOnly:       header[2],
	}

	count, err := shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read account count")
	}
	m.Accounts = make([]ed25519.PublicKey, count)
	for i := range m.Accounts {
		m.Accounts[i] = make(ed25519.PublicKey, ed25519.PublicKeySize)
		if _, err := io.ReadFull(r, m.Accounts[i]); err != nil {
			return errors.Wrapf(err, "failed to read account %d", i)
		}
	}

	if _, err := io.ReadFull(r, m.RecentBlockhash[:]); err != nil {
		return errors.Wrap(err, "failed to read recent blockhash")
	}

	count, err = shortvec.DecodeLen(r)
	if err != nil {
		return errors.Wrap(err, "failed to read instruction count")
	}
	m.Instructions = make([]CompiledInstruction, count)
	for i := range m.Instructions {
		instruction, err := readInstruction(r, len(m.Accounts))
		if err != nil {
			return errors.Wrapf(err, "invalid instruction %d", i)
		}
		m.Instructions[i] = instruction
	}

	if r.Len() > 0 {
		return errors.Errorf("unexpected trailing bytes: %d", r.Len())
	}
	return nil
}

func readInstruction(r *bytes.Reader, numAccounts int) (CompiledInstruction, error) {
	var instruction CompiledInstruction

	programIndex, err := r.ReadByte()
	if err != nil {
		return instruction, errors.Wrap(err, "failed to read program index")
	}
	if int(programIndex) >= numAccounts {
		return instruction, errors.Errorf("program index out of range: %d", programIndex)
	}
	instruction.ProgramIndex = programIndex

	if instruction.Accounts, err = readBytes(r); err != nil {
		return instruction, errors.Wrap(err, "failed to read account indexes")
	}
	for _, index := range instruction.Accounts {
		if int(index) >= numAccounts {
			return instruction, errors.Errorf("account index out of range: %d", index)
		}
	}

	if instruction.Data, err = readBytes(r); err != nil {
		return instruction, errors.Wrap(err, "failed to read data")
	}
	return instruction, nil
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	_, _ = shortvec.EncodeLen(buf, len(b))
	buf.Write(b)
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := shortvec.DecodeLen(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
