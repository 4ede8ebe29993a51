package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	addressCmd = &cobra.Command{
		Use:   "address",
		Short: "Print the wallet and owner addresses",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := loadWallet(cmd.Context())
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wallet:   %s\n", w.Address().Hex())
			fmt.Fprintf(out, "owner:    %s\n", w.Signer().Address().Hex())
			fmt.Fprintf(out, "deployed: %t\n", w.Ready())
			return nil
		},
	}

	balanceCmd = &cobra.Command{
		Use:   "balance [token]",
		Short: "Print the native balance, or an ERC-20 balance when a token is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, _, err := loadWallet(cmd.Context())
			if err != nil {
				return err
			}
			defer w.Close()

			var balance string
			if len(args) == 1 {
				token, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				balance, err = w.GetERC20Balance(cmd.Context(), token)
				if err != nil {
					return err
				}
			} else {
				balance, err = w.GetBalance(cmd.Context())
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(addressCmd)
	rootCmd.AddCommand(balanceCmd)
}
