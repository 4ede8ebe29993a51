package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/truewallet/truewallet-go/core/config"
	"github.com/truewallet/truewallet-go/core/wallet"
	"github.com/truewallet/truewallet-go/pkg/erc4337/bundler"
)

// rootCmd represents the base command when called without any subcommands
var (
	configPath = "config.yaml"
	rootCmd    = &cobra.Command{
		Use:   "truewallet",
		Short: "TrueWallet developer CLI",
		Long: `Inspect and drive a TrueWallet smart account from the command line.

The wallet, bundler and signer come from the config file, e.g.
"truewallet -c config.yaml send --to 0x... --amount 0.1"
`,
		SilenceUsage: true,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
}

func loadBundler() (*config.Config, *bundler.Client, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []bundler.Option{bundler.WithLogger(cfg.Logger)}
	if cfg.ReceiptPollInterval > 0 {
		opts = append(opts, bundler.WithPollInterval(cfg.ReceiptPollInterval))
	}
	client, err := bundler.NewClient(cfg.BundlerURL, cfg.Contracts.Entrypoint.Hex(), opts...)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func loadWallet(ctx context.Context) (*wallet.Wallet, *bundler.Client, error) {
	cfg, client, err := loadBundler()
	if err != nil {
		return nil, nil, err
	}
	w, err := wallet.New(ctx, *cfg, wallet.WithBundler(client))
	if err != nil {
		return nil, nil, err
	}
	return w, client, nil
}
