// ABOUTME: Canonical binary encoding of vault contents using the protobuf wire format.
// ABOUTME: Unknown fields are skipped so older readers accept files from newer writers.
package vault

import (
	"bytes"

	"github.com/oklog/ulid/v2"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/zettawatt/colony/hd"
)

// Field numbers of the plaintext record. Never reuse a number.
const (
	fieldWalletKey protowire.Number = 1
	fieldMnemonic  protowire.Number = 2
	fieldMaster    protowire.Number = 3
	fieldPodPub    protowire.Number = 4
	fieldPodSecret protowire.Number = 5
	fieldVaultID   protowire.Number = 6
)

// marshalRecord encodes v. Pods are written in public key order so equal
// vaults produce equal bytes. The result holds secrets; wipe it after use.
func (v *Vault) marshalRecord() []byte {
	pods := v.Pods()
	mnemonic := v.mnemonic.Bytes()
	defer wipe(mnemonic)
	id := v.id.String()

	size := 0
	if len(v.walletKey) > 0 {
		size += protowire.SizeTag(fieldWalletKey) + protowire.SizeBytes(len(v.walletKey))
	}
	if len(mnemonic) > 0 {
		size += protowire.SizeTag(fieldMnemonic) + protowire.SizeBytes(len(mnemonic))
	}
	size += protowire.SizeTag(fieldMaster) + protowire.SizeBytes(hd.SecretKeySize)
	size += len(pods) * (protowire.SizeTag(fieldPodPub) + protowire.SizeBytes(hd.PublicKeySize))
	size += len(pods) * (protowire.SizeTag(fieldPodSecret) + protowire.SizeBytes(hd.SecretKeySize))
	size += protowire.SizeTag(fieldVaultID) + protowire.SizeBytes(len(id))

	// Sized up front so append never copies secrets into a discarded buffer.
	b := make([]byte, 0, size)
	if len(v.walletKey) > 0 {
		b = protowire.AppendTag(b, fieldWalletKey, protowire.BytesType)
		b = protowire.AppendBytes(b, v.walletKey)
	}
	if len(mnemonic) > 0 {
		b = protowire.AppendTag(b, fieldMnemonic, protowire.BytesType)
		b = protowire.AppendBytes(b, mnemonic)
	}
	b = protowire.AppendTag(b, fieldMaster, protowire.BytesType)
	b = protowire.AppendBytes(b, v.master[:])
	for _, pub := range pods {
		b = protowire.AppendTag(b, fieldPodPub, protowire.BytesType)
		b = protowire.AppendBytes(b, pub[:])
	}
	for _, pub := range pods {
		sk := v.pods[pub]
		b = protowire.AppendTag(b, fieldPodSecret, protowire.BytesType)
		b = protowire.AppendBytes(b, sk[:])
	}
	b = protowire.AppendTag(b, fieldVaultID, protowire.BytesType)
	b = protowire.AppendString(b, id)
	return b
}

// record is the decoded but not yet validated plaintext. Its slices alias
// the plaintext buffer.
type record struct {
	walletKey  []byte
	mnemonic   []byte
	master     []byte
	podPubs    [][]byte
	podSecrets [][]byte
	vaultID    []byte
}

func unmarshalRecord(b []byte) (record, error) {
	var rec record
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return record{}, malformed("tag: %v", protowire.ParseError(n))
		}
		b = b[n:]

		var dst *[]byte
		var list *[][]byte
		switch num {
		case fieldWalletKey:
			dst = &rec.walletKey
		case fieldMnemonic:
			dst = &rec.mnemonic
		case fieldMaster:
			dst = &rec.master
		case fieldVaultID:
			dst = &rec.vaultID
		case fieldPodPub:
			list = &rec.podPubs
		case fieldPodSecret:
			list = &rec.podSecrets
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return record{}, malformed("field %d: %v", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		if typ != protowire.BytesType {
			return record{}, malformed("field %d: wire type %d, want bytes", num, typ)
		}
		val, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return record{}, malformed("field %d: %v", num, protowire.ParseError(n))
		}
		b = b[n:]
		if dst != nil {
			*dst = val
		} else {
			*list = append(*list, val)
		}
	}
	return rec, nil
}

// build validates rec and builds a Vault from the stored bytes. Pod keys are
// taken as stored, never re-derived, so imported pods survive a round trip.
func (rec record) build() (*Vault, error) {
	if len(rec.master) == 0 {
		return nil, malformed("missing master secret")
	}
	master, err := hd.MasterSecretFromBytes(rec.master)
	if err != nil {
		return nil, malformed("master secret: %v", err)
	}

	var m hd.Mnemonic
	if len(rec.mnemonic) > 0 {
		m, err = hd.ParseMnemonic(string(rec.mnemonic))
		if err != nil {
			master.Wipe()
			return nil, malformed("mnemonic: %v", err)
		}
	}

	v := &Vault{
		mnemonic: m,
		master:   master,
		pods:     make(map[hd.PublicKey]hd.SecretKey, len(rec.podSecrets)),
	}
	fail := func(err error) (*Vault, error) {
		v.Wipe()
		return nil, err
	}

	if len(rec.vaultID) > 0 {
		id, err := ulid.ParseStrict(string(rec.vaultID))
		if err != nil {
			return fail(malformed("vault id: %v", err))
		}
		v.id = id
	} else {
		v.id = ulid.Make()
	}

	if len(rec.podPubs) != len(rec.podSecrets) {
		return fail(malformed("%d pod public keys but %d secret keys", len(rec.podPubs), len(rec.podSecrets)))
	}
	if len(rec.podSecrets) == 0 {
		return fail(malformed("no pods"))
	}
	for i, raw := range rec.podSecrets {
		sk, err := hd.SecretKeyFromBytes(raw)
		if err != nil {
			return fail(malformed("pod %d secret: %v", i, err))
		}
		pub := sk.PublicKey()
		if !bytes.Equal(pub[:], rec.podPubs[i]) {
			return fail(malformed("pod %d public key does not match its secret", i))
		}
		v.insertPod(sk)
	}

	if len(rec.walletKey) > 0 {
		// SetWallet keeps its own copy of the key.
		if err := v.SetWallet(string(rec.walletKey)); err != nil {
			return fail(malformed("wallet: %v", err))
		}
	}
	return v, nil
}
