// Package crypto provides the signing key material, the token codec and
// password hashing of the tokengate service.
package crypto

import (
	"bytes"
	"context"
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/turtacn/tokengate/internal/config"
	"github.com/turtacn/tokengate/pkg/constants"
	"github.com/turtacn/tokengate/pkg/errors"
	"github.com/turtacn/tokengate/pkg/logger"
)

const lockRetryDelay = 50 * time.Millisecond

// KeyPair represents the RSA signing key pair. It is immutable once loaded.
type KeyPair struct {
	PrivateKey *rsa.PrivateKey
	PublicKey  *rsa.PublicKey
}

// KeyID returns the RFC 7638 thumbprint of the public key, base64url encoded.
func (kp *KeyPair) KeyID() (string, error) {
	key, err := jwk.FromRaw(kp.PublicKey)
	if err != nil {
		return "", errors.ErrKeyLoad.WithMessage("failed to convert public key to JWK").WithError(err)
	}
	thumbprint, err := key.Thumbprint(stdcrypto.SHA256)
	if err != nil {
		return "", errors.ErrKeyLoad.WithMessage("failed to compute key thumbprint").WithError(err)
	}
	return base64.RawURLEncoding.EncodeToString(thumbprint), nil
}

// KeyProvider loads the key pair from a directory, generating it on first boot.
type KeyProvider struct {
	dir         string
	lockTimeout time.Duration
	log         logger.Logger
}

// NewKeyProvider creates a new KeyProvider for cfg.Dir.
func NewKeyProvider(cfg config.KeysConfig, log logger.Logger) *KeyProvider {
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &KeyProvider{
		dir:         cfg.Dir,
		lockTimeout: timeout,
		log:         log,
	}
}

// PrivateKeyPath returns the path of the private key file.
func (p *KeyProvider) PrivateKeyPath() string {
	return filepath.Join(p.dir, constants.PrivateKeyFileName)
}

// PublicKeyPath returns the path of the public key file.
func (p *KeyProvider) PublicKeyPath() string {
	return filepath.Join(p.dir, constants.PublicKeyFileName)
}

// EnsureKeys loads the key pair, generating and persisting a new one when
// neither file exists. Existing files are never overwritten. A directory
// holding only one of the two files is reported as errors.ErrKeyLoad.
func (p *KeyProvider) EnsureKeys(ctx context.Context) (*KeyPair, error) {
	if present, err := p.filesPresent(); err == nil && present {
		return p.load(ctx)
	}

	if err := os.MkdirAll(p.dir, 0o700); err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to create key directory %s", p.dir).WithError(err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, p.lockTimeout)
	defer cancel()

	fileLock := flock.New(filepath.Join(p.dir, constants.KeyLockFileName))
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to acquire key lock").WithError(err)
	}
	if !locked {
		return nil, errors.ErrKeyLoad.WithMessage("failed to acquire key lock: timeout after %v", p.lockTimeout)
	}
	defer func() {
		_ = fileLock.Unlock()
	}()

	// Another process may have generated the pair while we waited.
	if present, err := p.filesPresent(); err != nil {
		return nil, err
	} else if present {
		return p.load(ctx)
	}

	return p.generate(ctx)
}

// filesPresent reports whether both key files exist.
func (p *KeyProvider) filesPresent() (bool, error) {
	privExists, err := fileExists(p.PrivateKeyPath())
	if err != nil {
		return false, errors.ErrKeyLoad.WithError(err)
	}
	pubExists, err := fileExists(p.PublicKeyPath())
	if err != nil {
		return false, errors.ErrKeyLoad.WithError(err)
	}
	if privExists != pubExists {
		return false, errors.ErrKeyLoad.
			WithMessage("incomplete key material in %s: exactly one of %s and %s exists",
				p.dir, constants.PrivateKeyFileName, constants.PublicKeyFileName)
	}
	return privExists, nil
}

func (p *KeyProvider) load(ctx context.Context) (*KeyPair, error) {
	priv, err := LoadPrivateKey(p.PrivateKeyPath())
	if err != nil {
		return nil, err
	}
	pub, err := LoadPublicKey(p.PublicKeyPath())
	if err != nil {
		return nil, err
	}
	if priv.PublicKey.N.Cmp(pub.N) != 0 || priv.PublicKey.E != pub.E {
		return nil, errors.ErrKeyLoad.WithMessage("public key does not match private key in %s", p.dir)
	}
	p.log.Info(ctx, "Loaded signing key pair", logger.Fields{"dir": p.dir})
	return &KeyPair{PrivateKey: priv, PublicKey: pub}, nil
}

func (p *KeyProvider) generate(ctx context.Context) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, constants.RSAKeyBits)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to generate RSA key").WithError(err)
	}

	privPEM, err := EncodePrivateKeyPEM(priv)
	if err != nil {
		return nil, err
	}
	pubPEM, err := EncodePublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return nil, err
	}

	if err := writeExclusive(p.PrivateKeyPath(), privPEM, 0o600); err != nil {
		return nil, err
	}
	if err := writeExclusive(p.PublicKeyPath(), pubPEM, 0o644); err != nil {
		// Leave neither file behind so the next boot can generate again.
		_ = os.Remove(p.PrivateKeyPath())
		return nil, err
	}

	p.log.Info(ctx, "Generated new signing key pair", logger.Fields{
		"dir":  p.dir,
		"bits": constants.RSAKeyBits,
	})
	return &KeyPair{PrivateKey: priv, PublicKey: &priv.PublicKey}, nil
}

// EncodePrivateKeyPEM encodes key as PKCS#8 DER inside a PRIVATE KEY block.
func EncodePrivateKeyPEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to marshal private key").WithError(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: constants.PEMTypePrivateKey, Bytes: der}), nil
}

// EncodePublicKeyPEM encodes key as SubjectPublicKeyInfo DER inside a PUBLIC KEY block.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to marshal public key").WithError(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: constants.PEMTypePublicKey, Bytes: der}), nil
}

// LoadPrivateKey reads a PKCS#8 RSA private key from a PEM file.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	der, err := readKeyFile(path, constants.PEMTypePrivateKey)
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to parse private key %s", path).WithError(err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.ErrKeyLoad.WithMessage("private key %s is not an RSA key", path)
	}
	return key, nil
}

// LoadPublicKey reads an SPKI RSA public key from a PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	der, err := readKeyFile(path, constants.PEMTypePublicKey)
	if err != nil {
		return nil, err
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to parse public key %s", path).WithError(err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.ErrKeyLoad.WithMessage("public key %s is not an RSA key", path)
	}
	return key, nil
}

// readKeyFile returns the DER payload of path. Files without PEM framing are
// accepted as bare Base64.
func readKeyFile(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("failed to read key file %s", path).WithError(err)
	}

	block, _ := pem.Decode(data)
	if block != nil {
		if block.Type != blockType {
			return nil, errors.ErrKeyLoad.WithMessage("key file %s has PEM type %q, want %q", path, block.Type, blockType)
		}
		return block.Bytes, nil
	}

	raw := bytes.Join(bytes.Fields(data), nil)
	if len(raw) == 0 {
		return nil, errors.ErrKeyLoad.WithMessage("key file %s is empty", path)
	}
	der := make([]byte, base64.StdEncoding.DecodedLen(len(raw)))
	n, err := base64.StdEncoding.Decode(der, raw)
	if err != nil {
		return nil, errors.ErrKeyLoad.WithMessage("key file %s is not valid Base64", path).WithError(err)
	}
	return der[:n], nil
}

// writeExclusive publishes data at path through a hard link from a temporary
// file, so path either does not exist or holds the complete content. An
// existing path is never replaced.
func writeExclusive(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.ErrKeyLoad.WithMessage("failed to create temporary key file for %s", path).WithError(err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.ErrKeyLoad.WithMessage("failed to write key file %s", path).WithError(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return errors.ErrKeyLoad.WithMessage("failed to set permissions on key file %s", path).WithError(err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.ErrKeyLoad.WithMessage("failed to sync key file %s", path).WithError(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.ErrKeyLoad.WithMessage("failed to close key file %s", path).WithError(err)
	}
	if err := os.Link(tmpPath, path); err != nil {
		return errors.ErrKeyLoad.WithMessage("failed to publish key file %s", path).WithError(err)
	}
	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
