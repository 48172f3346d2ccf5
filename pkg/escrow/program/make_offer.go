package program

import (
	"bytes"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

// makeOffer creates the offer and its vault, then moves the offered amount of
// token A from the maker into the vault.
//
// Accounts:
//
//  0. `[writable, signer]` maker
//  1. `[]` token mint A
//  2. `[]` token mint B
//  3. `[writable]` maker's token A account
//  4. `[writable]` offer, uninitialized
//  5. `[writable]` vault, uninitialized
//  6. `[]` associated token program
//  7. `[]` token program
//  8. `[]` system program
func makeOffer(ic *ledger.InvokeContext, accounts []*ledger.AccountInfo, args *escrow.MakeOfferInstructionArgs) error {
	if len(accounts) < 9 {
		return ErrorAccountNotEnoughKeys
	}

	makerInfo := accounts[0]
	mintAInfo := accounts[1]
	mintBInfo := accounts[2]
	makerTokenAccountAInfo := accounts[3]
	offerInfo := accounts[4]
	vaultInfo := accounts[5]
	associatedTokenProgramInfo := accounts[6]
	tokenProgramInfo := accounts[7]
	systemProgramInfo := accounts[8]

	log := ic.Logger().WithFields(logrus.Fields{
		"method": "make_offer",
		"maker":  base58.Encode(makerInfo.Key),
		"id":     args.Id,
	})

	if err := checkPrograms(associatedTokenProgramInfo, tokenProgramInfo, systemProgramInfo); err != nil {
		return err
	}

	if err := checkSignerMut(makerInfo); err != nil {
		return err
	}

	mintA, err := loadMint(mintAInfo, tokenProgramInfo)
	if err != nil {
		return err
	}
	if _, err := loadMint(mintBInfo, tokenProgramInfo); err != nil {
		return err
	}

	if err := checkMut(makerTokenAccountAInfo); err != nil {
		return err
	}
	if _, err := loadAssociatedTokenAccount(makerTokenAccountAInfo, makerInfo.Key, mintAInfo.Key, tokenProgramInfo); err != nil {
		return err
	}

	if err := checkMut(offerInfo); err != nil {
		return err
	}
	offerAddress, bump, err := escrow.GetOfferAddress(&escrow.GetOfferAddressArgs{
		Maker: makerInfo.Key,
		Id:    args.Id,
	})
	if err != nil || !bytes.Equal(offerAddress, offerInfo.Key) {
		return ErrorConstraintSeeds
	}

	if err := checkMut(vaultInfo); err != nil {
		return err
	}
	vaultAddress, err := escrow.GetVaultAddress(&escrow.GetVaultAddressArgs{
		Offer: offerAddress,
		MintA: mintAInfo.Key,
	})
	if err != nil || !bytes.Equal(vaultAddress, vaultInfo.Key) {
		return ErrorConstraintAssociated
	}

	// An offer address that holds data or belongs to a program is in use, so
	// (maker, id) is unique before any tokens move. Lamports alone don't
	// claim the address.
	offerSeeds := append(escrow.OfferSeeds(makerInfo.Key, args.Id), []byte{bump})
	err = ledger.CreateProgramAccount(ic, makerInfo, offerInfo, escrow.PROGRAM_ID, escrow.OfferAccountSize, offerSeeds)
	if err != nil {
		log.WithError(err).Debug("failure creating offer account")
		return err
	}

	createVault, _, err := token.CreateAssociatedTokenAccount(makerInfo.Key, offerInfo.Key, mintAInfo.Key)
	if err != nil {
		return err
	}
	if err := ic.Invoke(createVault); err != nil {
		log.WithError(err).Debug("failure creating vault")
		return err
	}

	err = ic.Invoke(token.TransferChecked(
		makerTokenAccountAInfo.Key,
		mintAInfo.Key,
		vaultInfo.Key,
		makerInfo.Key,
		args.TokenAOfferedAmount,
		mintA.Decimals,
	))
	if err != nil {
		log.WithError(err).Debug("failure funding vault")
		return err
	}

	offer := &escrow.OfferAccount{
		Id:                 args.Id,
		Maker:              makerInfo.Key,
		TokenMintA:         mintAInfo.Key,
		TokenMintB:         mintBInfo.Key,
		TokenBWantedAmount: args.TokenBWantedAmount,
		Bump:               bump,
	}
	offerInfo.Data = offer.Marshal()

	log.Debug("offer created")
	return nil
}
