package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/truewallet/truewallet-go/pkg/erc4337/userop"
)

var (
	receiptRetries uint

	receiptCmd = &cobra.Command{
		Use:   "receipt <userOpHash>",
		Short: "Poll the bundler for a user operation receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hexutil.Decode(args[0])
			if err != nil || len(raw) != common.HashLength {
				return fmt.Errorf("invalid user operation hash %q", args[0])
			}

			_, client, err := loadBundler()
			if err != nil {
				return err
			}
			receipt, err := client.GetUserOperationReceipt(cmd.Context(), common.BytesToHash(raw), receiptRetries)
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}

	entrypointsCmd = &cobra.Command{
		Use:   "entrypoints",
		Short: "List the entrypoints the bundler supports",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadBundler()
			if err != nil {
				return err
			}
			entrypoints, err := client.GetSupportedEntryPoints(cmd.Context())
			if err != nil {
				return err
			}
			for _, ep := range entrypoints {
				marker := ""
				if ep == client.Entrypoint() {
					marker = " (configured)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", ep.Hex(), marker)
			}
			return nil
		},
	}
)

func init() {
	receiptCmd.Flags().UintVar(&receiptRetries, "retries", 0, "poll retries after the first attempt")
	rootCmd.AddCommand(receiptCmd)
	rootCmd.AddCommand(entrypointsCmd)
}

func printReceipt(cmd *cobra.Command, receipt *userop.Receipt) error {
	out := cmd.OutOrStdout()
	if receipt == nil {
		fmt.Fprintln(out, "receipt not found")
		return nil
	}

	fmt.Fprintf(out, "success:         %t\n", receipt.Success)
	fmt.Fprintf(out, "transactionHash: %s\n", receipt.TransactionHash().Hex())
	if receipt.ActualGasUsed != nil {
		fmt.Fprintf(out, "actualGasUsed:   %s\n", receipt.ActualGasUsed.Int().String())
	}
	if receipt.Reason != "" {
		fmt.Fprintf(out, "reason:          %s\n", receipt.Reason)
	}
	return nil
}
