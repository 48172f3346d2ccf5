package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/solana/system"
	"github.com/code-payments/escrow-server/pkg/solana/token"
)

func newAirdropCmd(flags *globalFlags) *cobra.Command {
	var address string
	var lamports uint64

	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Request lamports from the development faucet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parsePublicKey("address", address); err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			var resp *api.RequestAirdropResponse
			err = s.call(func(ctx context.Context) (err error) {
				resp, err = s.client.RequestAirdrop(ctx, &api.RequestAirdropRequest{
					Address:  address,
					Lamports: lamports,
				})
				return err
			})
			if err != nil {
				return err
			}
			if resp.Result != api.ResultOK {
				return errors.Errorf("airdrop rejected: %s", resp.Result)
			}

			return printJSON(cmd, resp)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "address to fund")
	cmd.Flags().Uint64Var(&lamports, "lamports", 1_000_000_000, "lamports to request")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func newCreateMintCmd(flags *globalFlags) *cobra.Command {
	var authorityKey string
	var decimals uint8

	cmd := &cobra.Command{
		Use:   "create-mint",
		Short: "Create a mint whose mint authority is the payer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authority, err := parsePrivateKey("authority", authorityKey)
			if err != nil {
				return err
			}

			_, mint, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := s.submit(
				[]ed25519.PrivateKey{authority, mint},
				system.CreateAccount(
					publicKey(authority),
					publicKey(mint),
					token.ProgramKey,
					system.MinimumBalanceForRentExemption(token.MintSize),
					token.MintSize,
				),
				token.InitializeMint2(publicKey(mint), publicKey(authority), nil, decimals),
			)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]string{
				"mint":      base58.Encode(publicKey(mint)),
				"signature": resp.Signature,
			})
		},
	}

	cmd.Flags().StringVar(&authorityKey, "authority", "", "base58 private key of the payer and mint authority")
	cmd.Flags().Uint8Var(&decimals, "decimals", 6, "mint decimals")
	_ = cmd.MarkFlagRequired("authority")

	return cmd
}

func newMintToCmd(flags *globalFlags) *cobra.Command {
	var authorityKey, mintAddress, ownerAddress string
	var amount uint64

	cmd := &cobra.Command{
		Use:   "mint-to",
		Short: "Mint tokens into an owner's associated token account, creating it if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			authority, err := parsePrivateKey("authority", authorityKey)
			if err != nil {
				return err
			}
			mint, err := parsePublicKey("mint", mintAddress)
			if err != nil {
				return err
			}
			owner, err := parsePublicKey("owner", ownerAddress)
			if err != nil {
				return err
			}

			createAta, destination, err := token.CreateAssociatedTokenAccountIdempotent(publicKey(authority), owner, mint)
			if err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := s.submit(
				[]ed25519.PrivateKey{authority},
				createAta,
				token.MintTo(mint, destination, publicKey(authority), amount),
			)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]string{
				"token_account": base58.Encode(destination),
				"signature":     resp.Signature,
			})
		},
	}

	cmd.Flags().StringVar(&authorityKey, "authority", "", "base58 private key of the mint authority, which also pays")
	cmd.Flags().StringVar(&mintAddress, "mint", "", "mint address")
	cmd.Flags().StringVar(&ownerAddress, "owner", "", "wallet receiving the tokens")
	cmd.Flags().Uint64Var(&amount, "amount", 0, "amount in quarks")
	for _, name := range []string{"authority", "mint", "owner", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

type balance struct {
	Address  string `json:"address"`
	Lamports uint64 `json:"lamports"`

	Mint         string `json:"mint,omitempty"`
	TokenAccount string `json:"token_account,omitempty"`
	TokenAmount  uint64 `json:"token_amount,omitempty"`
}

func newBalanceCmd(flags *globalFlags) *cobra.Command {
	var address, mintAddress string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the lamports of an address, and optionally its associated token balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parsePublicKey("address", address)
			if err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			res := &balance{Address: address}

			var accountResp *api.GetAccountInfoResponse
			err = s.call(func(ctx context.Context) (err error) {
				accountResp, err = s.client.GetAccountInfo(ctx, &api.GetAccountInfoRequest{Address: address})
				return err
			})
			if err != nil {
				return err
			}
			if accountResp.Result == api.ResultOK {
				res.Lamports = accountResp.Account.Lamports
			}

			if len(mintAddress) > 0 {
				mint, err := parsePublicKey("mint", mintAddress)
				if err != nil {
					return err
				}

				ata, err := token.GetAssociatedAccount(owner, mint)
				if err != nil {
					return err
				}
				res.Mint = mintAddress
				res.TokenAccount = base58.Encode(ata)

				var tokenResp *api.GetTokenAccountResponse
				err = s.call(func(ctx context.Context) (err error) {
					tokenResp, err = s.client.GetTokenAccount(ctx, &api.GetTokenAccountRequest{Address: res.TokenAccount})
					return err
				})
				if err != nil {
					return err
				}
				if tokenResp.Result == api.ResultOK {
					res.TokenAmount = tokenResp.TokenAccount.Amount
				}
			}

			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	cmd.Flags().StringVar(&mintAddress, "mint", "", "optional mint of the associated token account to report")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}
