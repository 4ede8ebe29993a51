package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/truewallet/truewallet-go/core/wallet"
)

var (
	sendTo     string
	sendAmount string
	sendWait   uint

	sendCmd = &cobra.Command{
		Use:   "send",
		Short: "Send ether from the wallet",
		Long: `Build, sign and submit a user operation transferring ether.

With --wait N the receipt is polled N more times after the first attempt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := parseAddress(sendTo)
			if err != nil {
				return err
			}

			w, _, err := loadWallet(cmd.Context())
			if err != nil {
				return err
			}
			defer w.Close()

			resp, err := w.Send(cmd.Context(), wallet.SendParams{To: to, Amount: sendAmount})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "userOpHash: %s\n", resp.Hash.Hex())

			if !cmd.Flags().Changed("wait") {
				return nil
			}
			receipt, err := resp.Wait(cmd.Context(), sendWait)
			if err != nil {
				return err
			}
			return printReceipt(cmd, receipt)
		},
	}
)

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in ether, e.g. 0.1")
	sendCmd.Flags().UintVar(&sendWait, "wait", 0, "receipt poll retries after submission")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(sendCmd)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
