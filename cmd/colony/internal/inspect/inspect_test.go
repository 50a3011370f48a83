package inspect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zettawatt/colony/hd"
	"github.com/zettawatt/colony/vault"
)

func TestSummary(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "meta.db")
	store, err := vault.OpenStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m, err := vault.FromMnemonic("abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	pub0, _ := m.AddPod(hd.Index(0))
	pub5, _ := m.AddPod(hd.Index(5))
	for i, pub := range map[uint64]hd.PublicKey{0: pub0, 5: pub5} {
		if err := store.RecordPod(ctx, i, pub); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := store.SetState(ctx, vault.StateVaultID, m.ID()); err != nil {
		t.Fatalf("set state: %v", err)
	}
	_ = store.Close()

	insp, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open inspector: %v", err)
	}
	defer func() {
		_ = insp.Close()
	}()

	s, err := insp.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := Summary{VaultID: m.ID(), Pods: 2, HighestIndex: 5}
	if s != want {
		t.Fatalf("summary %+v, want %+v", s, want)
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "absent.db")); err == nil {
		t.Fatal("expected error for missing db")
	}
}

func TestKeystore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore")
	v, err := vault.FromMnemonic("legal winner thank year wave sausage worth useful legal winner thank yellow")
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	kdf := vault.KDFParams{MemoryMB: 1, Time: 2, Threads: 1}
	if err := v.SaveFileWith(path, "pw", kdf); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := Keystore(path)
	if err != nil {
		t.Fatalf("keystore: %v", err)
	}
	if info.KDF != kdf || info.Version != 1 || info.Size == 0 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := Keystore(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing keystore")
	}
}
