package main

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/code-payments/escrow-server/pkg/escrow/api"
	"github.com/code-payments/escrow-server/pkg/solana/escrow"
)

func newMakeOfferCmd(flags *globalFlags) *cobra.Command {
	var makerKey, mintAAddress, mintBAddress string
	var id, amountA, amountB uint64

	cmd := &cobra.Command{
		Use:   "make-offer",
		Short: "Escrow token A in exchange for a wanted amount of token B",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			maker, err := parsePrivateKey("maker", makerKey)
			if err != nil {
				return err
			}
			mintA, err := parsePublicKey("mint-a", mintAAddress)
			if err != nil {
				return err
			}
			mintB, err := parsePublicKey("mint-b", mintBAddress)
			if err != nil {
				return err
			}

			accounts, err := escrow.MakeOfferInstructionAccountsFor(publicKey(maker), mintA, mintB, id)
			if err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := s.submit(
				[]ed25519.PrivateKey{maker},
				escrow.NewMakeOfferInstruction(accounts, &escrow.MakeOfferInstructionArgs{
					Id:                  id,
					TokenAOfferedAmount: amountA,
					TokenBWantedAmount:  amountB,
				}),
			)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]string{
				"offer":     base58.Encode(accounts.Offer),
				"vault":     base58.Encode(accounts.Vault),
				"signature": resp.Signature,
			})
		},
	}

	cmd.Flags().StringVar(&makerKey, "maker", "", "base58 private key of the maker")
	cmd.Flags().StringVar(&mintAAddress, "mint-a", "", "mint of the offered token")
	cmd.Flags().StringVar(&mintBAddress, "mint-b", "", "mint of the wanted token")
	cmd.Flags().Uint64Var(&id, "id", 0, "offer id, unique per maker")
	cmd.Flags().Uint64Var(&amountA, "amount-a", 0, "offered amount of token A")
	cmd.Flags().Uint64Var(&amountB, "amount-b", 0, "wanted amount of token B")
	for _, name := range []string{"maker", "mint-a", "mint-b", "id", "amount-a", "amount-b"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newExchangeCmd(flags *globalFlags) *cobra.Command {
	var makerKey, takerKey, mintAAddress, mintBAddress string
	var amountA, amountB uint64

	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Swap token A from the maker for token B from the taker",
		Long: `Swap token A from the maker for token B from the taker. Both parties sign,
and the taker pays for any associated token accounts that need creating.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			maker, err := parsePrivateKey("maker", makerKey)
			if err != nil {
				return err
			}
			taker, err := parsePrivateKey("taker", takerKey)
			if err != nil {
				return err
			}
			mintA, err := parsePublicKey("mint-a", mintAAddress)
			if err != nil {
				return err
			}
			mintB, err := parsePublicKey("mint-b", mintBAddress)
			if err != nil {
				return err
			}

			accounts, err := escrow.ExchangeInstructionAccountsFor(publicKey(maker), publicKey(taker), mintA, mintB)
			if err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			resp, err := s.submit(
				[]ed25519.PrivateKey{taker, maker},
				escrow.NewExchangeInstruction(accounts, &escrow.ExchangeInstructionArgs{
					TokenAAmount: amountA,
					TokenBAmount: amountB,
				}),
			)
			if err != nil {
				return err
			}

			return printJSON(cmd, map[string]string{
				"signature": resp.Signature,
			})
		},
	}

	cmd.Flags().StringVar(&makerKey, "maker", "", "base58 private key of the maker")
	cmd.Flags().StringVar(&takerKey, "taker", "", "base58 private key of the taker, who pays")
	cmd.Flags().StringVar(&mintAAddress, "mint-a", "", "mint of the token the maker gives")
	cmd.Flags().StringVar(&mintBAddress, "mint-b", "", "mint of the token the taker gives")
	cmd.Flags().Uint64Var(&amountA, "amount-a", 0, "amount of token A moved to the taker")
	cmd.Flags().Uint64Var(&amountB, "amount-b", 0, "amount of token B moved to the maker")
	for _, name := range []string{"maker", "taker", "mint-a", "mint-b", "amount-a", "amount-b"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newOfferCmd(flags *globalFlags) *cobra.Command {
	var makerAddress string
	var id uint64
	var all bool

	cmd := &cobra.Command{
		Use:   "offer",
		Short: "Show an indexed offer, or every offer made by a maker with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := parsePublicKey("maker", makerAddress); err != nil {
				return err
			}

			s, closeFn, err := newSession(cmd, flags)
			if err != nil {
				return err
			}
			defer closeFn()

			if !all {
				var resp *api.GetOfferResponse
				err = s.call(func(ctx context.Context) (err error) {
					resp, err = s.client.GetOffer(ctx, &api.GetOfferRequest{Maker: makerAddress, Id: id})
					return err
				})
				if err != nil {
					return err
				}
				if resp.Result != api.ResultOK {
					return errors.Errorf("offer lookup failed: %s", resp.Result)
				}
				return printJSON(cmd, resp.Offer)
			}

			var offers []*api.OfferInfo
			var cursor uint64
			for {
				var resp *api.GetOffersByMakerResponse
				err = s.call(func(ctx context.Context) (err error) {
					resp, err = s.client.GetOffersByMaker(ctx, &api.GetOffersByMakerRequest{
						Maker:  makerAddress,
						Cursor: cursor,
						Limit:  api.MaxOffersPageSize,
					})
					return err
				})
				if err != nil {
					return err
				}
				if resp.Result != api.ResultOK {
					break
				}

				offers = append(offers, resp.Offers...)
				if len(resp.Offers) < api.MaxOffersPageSize {
					break
				}
				cursor = resp.NextCursor
			}

			return printJSON(cmd, offers)
		},
	}

	cmd.Flags().StringVar(&makerAddress, "maker", "", "maker address")
	cmd.Flags().Uint64Var(&id, "id", 0, "offer id")
	cmd.Flags().BoolVar(&all, "all", false, "list every offer made by the maker")
	_ = cmd.MarkFlagRequired("maker")

	return cmd
}
