package appcli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/zettawatt/colony/vault"
)

// RuntimeConfig captures CLI flag inputs shared across binaries.
type RuntimeConfig struct {
	KeystorePath string
	MetaDBPath   string
	KDFMemoryMB  uint32
	KDFTime      uint32
	KDFThreads   uint8
}

// BindFlags attaches shared flags to provided FlagSet.
func (rc *RuntimeConfig) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&rc.KeystorePath, "keystore", rc.KeystorePath, "path to encrypted keystore file")
	fs.StringVar(&rc.MetaDBPath, "meta-db", rc.MetaDBPath, "path to non-secret metadata SQLite db")
	fs.Uint32Var(&rc.KDFMemoryMB, "kdf-memory", rc.KDFMemoryMB, "argon2id memory in MiB used when writing")
	fs.Uint32Var(&rc.KDFTime, "kdf-time", rc.KDFTime, "argon2id passes used when writing")
	fs.Uint8Var(&rc.KDFThreads, "kdf-threads", rc.KDFThreads, "argon2id lanes used when writing")
}

// Options converts runtime config into app Options. Unset KDF fields keep
// their defaults.
func (rc RuntimeConfig) Options(log *logrus.Logger) Options {
	kdf := vault.DefaultKDFParams()
	if rc.KDFMemoryMB != 0 {
		kdf.MemoryMB = rc.KDFMemoryMB
	}
	if rc.KDFTime != 0 {
		kdf.Time = rc.KDFTime
	}
	if rc.KDFThreads != 0 {
		kdf.Threads = rc.KDFThreads
	}
	return Options{
		KeystorePath: rc.KeystorePath,
		MetaDBPath:   rc.MetaDBPath,
		KDF:          kdf,
		Logger:       log,
	}
}
