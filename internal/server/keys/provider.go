// Package keys loads and caches the RSA key pair used to sign access tokens.
// Key material is read once and held for the process lifetime; rotation
// happens by redeploying the key and restarting.
package keys

import (
	"context"
	"crypto/rsa"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkuznecov/authkeeper/internal/common"
)

// Source supplies raw PEM-encoded RSA private key material.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// StaticSource serves fixed key material. Intended for tests.
type StaticSource []byte

func (s StaticSource) Load(ctx context.Context) ([]byte, error) {
	return s, nil
}

// Provider parses and caches the signing key on first use. A failed load is
// not cached, so a transient source failure does not stick for the process
// lifetime. All failures are reported as common.ErrKeyUnavailable.
type Provider struct {
	source Source

	mu  sync.Mutex
	key *rsa.PrivateKey
}

func NewProvider(source Source) *Provider {
	return &Provider{source: source}
}

// SigningKey returns the RSA private key, loading it from the source on the
// first call.
func (p *Provider) SigningKey(ctx context.Context) (*rsa.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, nil
	}

	raw, err := p.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyUnavailable, err)
	}

	p.key = key
	return p.key, nil
}

// PublicKey returns the verification half of the signing key. It is what
// relying parties need to verify issued tokens without contacting this
// service.
func (p *Provider) PublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	key, err := p.SigningKey(ctx)
	if err != nil {
		return nil, err
	}
	return &key.PublicKey, nil
}
