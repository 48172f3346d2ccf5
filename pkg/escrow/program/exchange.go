package program

import (
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/escrow-server/pkg/ledger"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

// exchange swaps token A from the maker for token B from the taker. The
// destination accounts are created when missing, each paid for by its
// wallet.
//
// Accounts:
//
//  0. `[writable, signer]` maker
//  1. `[writable, signer]` taker
//  2. `[]` token mint A
//  3. `[]` token mint B
//  4. `[writable]` maker's token A account
//  5. `[writable]` taker's token B account
//  6. `[writable]` maker's token B account, created if needed
//  7. `[writable]` taker's token A account, created if needed
//  8. `[]` associated token program
//  9. `[]` token program
//  10. `[]` system program
func exchange(ic *ledger.InvokeContext, accounts []*ledger.AccountInfo, args *escrow.ExchangeInstructionArgs) error {
	if len(accounts) < 11 {
		return ErrorAccountNotEnoughKeys
	}

	makerInfo := accounts[0]
	takerInfo := accounts[1]
	mintAInfo := accounts[2]
	mintBInfo := accounts[3]
	makerTokenAccountAInfo := accounts[4]
	takerTokenAccountBInfo := accounts[5]
	makerTokenAccountBInfo := accounts[6]
	takerTokenAccountAInfo := accounts[7]
	associatedTokenProgramInfo := accounts[8]
	tokenProgramInfo := accounts[9]
	systemProgramInfo := accounts[10]

	log := ic.Logger().WithFields(logrus.Fields{
		"method": "exchange",
		"maker":  base58.Encode(makerInfo.Key),
		"taker":  base58.Encode(takerInfo.Key),
	})

	if err := checkPrograms(associatedTokenProgramInfo, tokenProgramInfo, systemProgramInfo); err != nil {
		return err
	}

	if err := checkSignerMut(makerInfo); err != nil {
		return err
	}
	if err := checkSignerMut(takerInfo); err != nil {
		return err
	}

	mintA, err := loadMint(mintAInfo, tokenProgramInfo)
	if err != nil {
		return err
	}
	mintB, err := loadMint(mintBInfo, tokenProgramInfo)
	if err != nil {
		return err
	}

	if err := checkMut(makerTokenAccountAInfo); err != nil {
		return err
	}
	if _, err := loadAssociatedTokenAccount(makerTokenAccountAInfo, makerInfo.Key, mintAInfo.Key, tokenProgramInfo); err != nil {
		return err
	}

	if err := checkMut(takerTokenAccountBInfo); err != nil {
		return err
	}
	if _, err := loadAssociatedTokenAccount(takerTokenAccountBInfo, takerInfo.Key, mintBInfo.Key, tokenProgramInfo); err != nil {
		return err
	}

	if err := checkMut(makerTokenAccountBInfo); err != nil {
		return err
	}
	createMakerTokenAccountB, err := needsAssociatedTokenAccount(makerTokenAccountBInfo, makerInfo.Key, mintBInfo.Key, tokenProgramInfo)
	if err != nil {
		return err
	}

	if err := checkMut(takerTokenAccountAInfo); err != nil {
		return err
	}
	createTakerTokenAccountA, err := needsAssociatedTokenAccount(takerTokenAccountAInfo, takerInfo.Key, mintAInfo.Key, tokenProgramInfo)
	if err != nil {
		return err
	}

	if createMakerTokenAccountB {
		if err := createAssociatedTokenAccount(ic, makerInfo, mintBInfo); err != nil {
			log.WithError(err).Debug("failure creating maker token B account")
			return err
		}
	}
	if createTakerTokenAccountA {
		if err := createAssociatedTokenAccount(ic, takerInfo, mintAInfo); err != nil {
			log.WithError(err).Debug("failure creating taker token A account")
			return err
		}
	}

	err = ic.Invoke(token.TransferChecked(
		makerTokenAccountAInfo.Key,
		mintAInfo.Key,
		takerTokenAccountAInfo.Key,
		makerInfo.Key,
		args.TokenAAmount,
		mintA.Decimals,
	))
	if err != nil {
		log.WithError(err).Debug("failure transferring token A")
		return err
	}

	err = ic.Invoke(token.TransferChecked(
		takerTokenAccountBInfo.Key,
		mintBInfo.Key,
		makerTokenAccountBInfo.Key,
		takerInfo.Key,
		args.TokenBAmount,
		mintB.Decimals,
	))
	if err != nil {
		log.WithError(err).Debug("failure transferring token B")
		return err
	}

	log.WithFields(logrus.Fields{
		"token_a_amount": args.TokenAAmount,
		"token_b_amount": args.TokenBAmount,
	}).Debug("exchange completed")
	return nil
}

// createAssociatedTokenAccount creates the associated token account of wallet
// for mint, paid for by the wallet.
func createAssociatedTokenAccount(ic *ledger.InvokeContext, walletInfo, mintInfo *ledger.AccountInfo) error {
	instruction, _, err := token.CreateAssociatedTokenAccount(walletInfo.Key, walletInfo.Key, mintInfo.Key)
	if err != nil {
		return err
	}
	return ic.Invoke(instruction)
}
