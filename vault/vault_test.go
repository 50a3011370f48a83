package vault

import (
	"errors"
	"testing"

	"github.com/zettawatt/colony/hd"
)

const (
	abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

	// Well-known development account key and its address.
	testWalletKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testWalletAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

// testKDF keeps Argon2id cheap in tests.
var testKDF = KDFParams{MemoryMB: 1, Time: 1, Threads: 1}

func newTestVault(t testing.TB) *Vault {
	t.Helper()
	v, err := FromMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("FromMnemonic: %v", err)
	}
	return v
}

// fataler is satisfied by both *testing.T and *rapid.T.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func assertPodInvariant(t fataler, v *Vault) {
	t.Helper()
	for pub, sk := range v.pods {
		if sk.PublicKey() != pub {
			t.Fatalf("pod %s does not match its secret key", pub.Hex())
		}
	}
}

func TestFromMnemonic(t *testing.T) {
	v := newTestVault(t)

	if v.Mnemonic() != abandonMnemonic {
		t.Fatalf("Mnemonic() = %q", v.Mnemonic())
	}
	if !v.HasMnemonic() {
		t.Fatal("HasMnemonic() = false")
	}
	if v.PodCount() != 1 {
		t.Fatalf("expected exactly one pod, got %d", v.PodCount())
	}

	m, err := hd.ParseMnemonic(abandonMnemonic)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	master, err := hd.MasterSecretFromMnemonic(m)
	if err != nil {
		t.Fatalf("master: %v", err)
	}
	want := hd.DeriveChild(master, hd.Index(0)).PublicKey()
	if !v.HasPod(want) {
		t.Fatal("first pod is not the index 0 child")
	}
	if v.MasterPublicKey() != master.PublicKey() {
		t.Fatal("master public key mismatch")
	}
	if v.HasWallet() {
		t.Fatal("new vault should have no wallet")
	}
	if _, err := v.WalletAddress(); !errors.Is(err, ErrNoWallet) {
		t.Fatalf("expected ErrNoWallet, got %v", err)
	}
	if v.ID() == "" {
		t.Fatal("empty vault id")
	}
	assertPodInvariant(t, v)
}

func TestFromMnemonicDeterministic(t *testing.T) {
	a := newTestVault(t)
	b, err := FromMnemonic("  Abandon ABANDON abandon abandon abandon abandon abandon abandon abandon abandon abandon about")
	if err != nil {
		t.Fatalf("FromMnemonic: %v", err)
	}
	if a.master != b.master {
		t.Fatal("normalized mnemonics yield different master secrets")
	}
	if a.Pods()[0] != b.Pods()[0] {
		t.Fatal("normalized mnemonics yield different first pods")
	}
}

func TestFromMnemonicInvalid(t *testing.T) {
	if _, err := FromMnemonic("abandon abandon abandon"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}

func TestFromSecretKeyHex(t *testing.T) {
	src := newTestVault(t)
	sk := hd.SecretKey(src.master)

	v, err := FromSecretKeyHex(sk.Hex())
	if err != nil {
		t.Fatalf("FromSecretKeyHex: %v", err)
	}
	if v.HasMnemonic() || v.Mnemonic() != "" {
		t.Fatal("raw key vault should have no mnemonic")
	}
	if v.Pods()[0] != src.Pods()[0] {
		t.Fatal("raw key vault derives a different first pod")
	}

	if _, err := FromSecretKeyHex("not hex"); !errors.Is(err, ErrInvalidSecretKey) {
		t.Fatalf("expected ErrInvalidSecretKey, got %v", err)
	}
}

func TestAddPodIdempotent(t *testing.T) {
	v := newTestVault(t)

	pub1, sk1 := v.AddPod(hd.Index(1))
	pub2, sk2 := v.AddPod(hd.Index(1))
	if pub1 != pub2 || sk1 != sk2 {
		t.Fatal("same index produced different pods")
	}
	if v.PodCount() != 2 {
		t.Fatalf("expected 2 pods, got %d", v.PodCount())
	}

	v.AddPod(hd.Index(0))
	if v.PodCount() != 2 {
		t.Fatalf("re-adding index 0 changed pod count to %d", v.PodCount())
	}
	assertPodInvariant(t, v)
}

func TestAddPodRange(t *testing.T) {
	v := newTestVault(t)
	for i := uint64(1); i <= 10; i++ {
		v.AddPod(hd.Index(i))
	}
	if v.PodCount() != 11 {
		t.Fatalf("expected 11 distinct pods, got %d", v.PodCount())
	}

	pods := v.Pods()
	for i := 1; i < len(pods); i++ {
		if pods[i-1].Compare(pods[i]) >= 0 {
			t.Fatal("Pods() not sorted")
		}
	}
	assertPodInvariant(t, v)
}

func TestImportPod(t *testing.T) {
	v := newTestVault(t)
	other, err := FromMnemonic("legal winner thank year wave sausage worth useful legal winner thank yellow")
	if err != nil {
		t.Fatalf("other vault: %v", err)
	}
	otherPub := other.Pods()[0]
	otherSK, _ := other.PodSecretKey(otherPub)

	pub, err := v.ImportPod(otherSK.Hex())
	if err != nil {
		t.Fatalf("ImportPod: %v", err)
	}
	if pub != otherPub {
		t.Fatal("imported pod has wrong public key")
	}
	if v.PodCount() != 2 {
		t.Fatalf("expected 2 pods, got %d", v.PodCount())
	}
	if _, err := v.ImportPod("00"); !errors.Is(err, ErrInvalidSecretKey) {
		t.Fatalf("expected ErrInvalidSecretKey, got %v", err)
	}
	assertPodInvariant(t, v)
}

func TestWipe(t *testing.T) {
	v := newTestVault(t)
	if err := v.SetWallet(testWalletKey); err != nil {
		t.Fatalf("SetWallet: %v", err)
	}
	w, _ := v.Wallet()
	key := v.walletKey

	v.Wipe()

	if !v.master.IsZero() {
		t.Fatal("master not wiped")
	}
	if v.HasMnemonic() {
		t.Fatal("mnemonic not wiped")
	}
	if v.PodCount() != 0 {
		t.Fatal("pods not cleared")
	}
	if v.HasWallet() || w.key != nil {
		t.Fatal("wallet not cleared")
	}
	for i, c := range key {
		if c != 0 {
			t.Fatalf("wallet key byte %d not wiped", i)
		}
	}
}
