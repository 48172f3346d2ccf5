package escrow

import (
	"bytes"
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeMakeOffer
	InstructionTypeExchange
)

// Instruction discriminators are sha256("global:<name>")[:8]
var (
	MakeOfferInstructionDiscriminator = []byte{214, 98, 97, 35, 59, 12, 44, 178}
	ExchangeInstructionDiscriminator  = []byte{47, 3, 27, 97, 215, 236, 219, 144}
)

// GetInstructionType maps instruction data to its type by discriminator.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return InstructionTypeUnknown
	}

	switch {
	case bytes.Equal(data[:8], MakeOfferInstructionDiscriminator):
		return InstructionTypeMakeOffer
	case bytes.Equal(data[:8], ExchangeInstructionDiscriminator):
		return InstructionTypeExchange
	}
	return InstructionTypeUnknown
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeMakeOffer:
		return "make_offer"
	case InstructionTypeExchange:
		return "exchange"
	}
	return "unknown"
}
