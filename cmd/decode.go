package cmd

import (
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/pkg/byte4"
)

// known is every ABI the wallet encodes calls for, most specific first.
var known = []abi.ABI{aa.TrueWalletABI, aa.SecurityControlModuleABI, aa.SocialRecoveryModuleABI, aa.ERC20ABI, aa.FactoryABI}

var decodeCmd = &cobra.Command{
	Use:   "decode <callData>",
	Short: "Decode user operation call data, following nested wallet calls",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexutil.Decode(args[0])
		if err != nil {
			return fmt.Errorf("invalid call data: %w", err)
		}
		return printCall(cmd.OutOrStdout(), data, "")
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func printCall(out io.Writer, data []byte, indent string) error {
	call, err := byte4.DecodeAny(data, known...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s%s\n", indent, call.Method.Sig)
	for i, input := range call.Method.Inputs {
		arg := call.Args[i]
		if nested, ok := arg.([]byte); ok && len(nested) >= 4 {
			if _, err := byte4.DecodeAny(nested, known...); err == nil {
				fmt.Fprintf(out, "%s  %s:\n", indent, input.Name)
				if err := printCall(out, nested, indent+"    "); err != nil {
					return err
				}
				continue
			}
		}
		fmt.Fprintf(out, "%s  %s: %s\n", indent, input.Name, formatArg(arg))
	}
	return nil
}

func formatArg(v interface{}) string {
	switch a := v.(type) {
	case common.Address:
		return a.Hex()
	case []byte:
		return hexutil.Encode(a)
	case [32]byte:
		return hexutil.Encode(a[:])
	case *big.Int:
		return a.String()
	default:
		return fmt.Sprintf("%v", a)
	}
}
