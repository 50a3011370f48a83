// ABOUTME: Detects drift between the non-secret metadata store and the unlocked vault.
// ABOUTME: Drift appears when a keystore file is replaced or restored without its store.

package appcli

import (
	"context"
	"errors"

	"github.com/zettawatt/colony/hd"
	"github.com/zettawatt/colony/vault"
)

// Conflict kinds.
const (
	ConflictVaultID = "vault_id"
	ConflictPod     = "pod"
	ConflictWallet  = "wallet"
)

// Conflict is one disagreement between the store and the vault.
type Conflict struct {
	Kind   string
	Detail string
	// Index is set for ConflictPod.
	Index uint64
}

// CheckMetadata compares the store against the unlocked vault.
func (a *App) CheckMetadata(ctx context.Context) ([]Conflict, error) {
	id, err := a.session.ID(ctx)
	if err != nil {
		return nil, err
	}
	pods, err := a.session.Pods(ctx)
	if err != nil {
		return nil, err
	}
	held := make(map[hd.PublicKey]struct{}, len(pods))
	for _, p := range pods {
		held[p] = struct{}{}
	}

	var out []Conflict
	storedID, err := a.store.GetState(ctx, vault.StateVaultID, "")
	if err != nil {
		return nil, err
	}
	if storedID != id {
		out = append(out, Conflict{Kind: ConflictVaultID, Detail: "store describes " + orNone(storedID) + ", keystore is " + id})
	}

	records, err := a.store.ListPods(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		pub, err := hd.PublicKeyFromHex(r.PublicKey)
		if err == nil {
			if _, ok := held[pub]; ok {
				continue
			}
		}
		out = append(out, Conflict{Kind: ConflictPod, Index: r.Index, Detail: "pod " + formatIndex(r.Index) + " not in keystore"})
	}

	storedAddr, err := a.store.GetState(ctx, vault.StateWalletAddress, "")
	if err != nil {
		return nil, err
	}
	addr, err := a.session.WalletAddress(ctx)
	switch {
	case errors.Is(err, vault.ErrNoWallet):
		addr = ""
	case err != nil:
		return nil, err
	}
	if storedAddr != addr {
		out = append(out, Conflict{Kind: ConflictWallet, Detail: "store has " + orNone(storedAddr) + ", keystore has " + orNone(addr)})
	}
	return out, nil
}

// RepairMetadata rewrites the store so CheckMetadata reports nothing. Pod
// records the vault does not hold are dropped.
func (a *App) RepairMetadata(ctx context.Context) (int, error) {
	conflicts, err := a.CheckMetadata(ctx)
	if err != nil {
		return 0, err
	}
	for _, c := range conflicts {
		switch c.Kind {
		case ConflictVaultID:
			id, err := a.session.ID(ctx)
			if err != nil {
				return 0, err
			}
			if err := a.store.SetState(ctx, vault.StateVaultID, id); err != nil {
				return 0, err
			}
		case ConflictPod:
			if err := a.store.ForgetPod(ctx, c.Index); err != nil {
				return 0, err
			}
		case ConflictWallet:
			addr, err := a.session.WalletAddress(ctx)
			if errors.Is(err, vault.ErrNoWallet) {
				addr, err = "", nil
			}
			if err != nil {
				return 0, err
			}
			if err := a.store.SetState(ctx, vault.StateWalletAddress, addr); err != nil {
				return 0, err
			}
		}
	}
	return len(conflicts), nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
