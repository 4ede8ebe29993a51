package wallet

import (
	"context"

	"github.com/truewallet/truewallet-go/core/chainio/aa"
	"github.com/truewallet/truewallet-go/core/walleterr"
)

// RefreshReadiness checks the wallet code again and caches the result.
func (w *Wallet) RefreshReadiness(ctx context.Context) (bool, error) {
	deployed, err := aa.IsContract(ctx, w.node, w.address)
	if err != nil {
		return false, err
	}
	w.ready.Store(deployed)
	return deployed, nil
}

// walletReady fails with WALLET_NOT_READY while the wallet has no code. A
// positive answer is cached, a negative one is checked again next time.
func (w *Wallet) walletReady(ctx context.Context) error {
	if w.ready.Load() {
		return nil
	}
	ready, err := w.RefreshReadiness(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return walleterr.New(walleterr.CodeWalletNotReady, "Wallet is not smart contract yet.")
	}
	return nil
}

// onlyOwner lets anything through for an undeployed wallet, the first
// operation deploys it with the signer as owner. Once deployed the signer
// must be an owner.
func (w *Wallet) onlyOwner(ctx context.Context) error {
	if !w.ready.Load() {
		ready, err := w.RefreshReadiness(ctx)
		if err != nil {
			return err
		}
		if !ready {
			return nil
		}
	}

	owner, err := aa.IsOwner(ctx, w.node, w.address, w.signer.Address())
	if err != nil {
		return walleterr.Wrap(walleterr.CodeCallException, err)
	}
	if !owner {
		return walleterr.New(walleterr.CodeWalletNotOwned, "This operation is allowed only for the wallet owner.",
			map[string]interface{}{"signer": w.signer.Address().Hex()})
	}
	return nil
}
