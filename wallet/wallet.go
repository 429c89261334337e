package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNoWallet means no key material is configured at all, the moral
	// equivalent of the browser extension being absent.
	ErrNoWallet = errors.New("no wallet key configured")
	// ErrNoAccounts means the key file exists but holds no usable key.
	ErrNoAccounts = errors.New("no accounts available in wallet")
)

// Provider holds the one signing key the client operates with. It plays the
// browser wallet's role: it exposes exactly one connected account address
// and signs transactions on its behalf.
type Provider struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewProvider builds a provider from a hex-encoded private key.
func NewProvider(privateKeyHex string, chainID *big.Int) (*Provider, error) {
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, ErrNoWallet
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet private key: %w", err)
	}

	return &Provider{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// LoadProvider reads the key file at path and builds a provider from it.
// A missing or empty file maps to the precondition errors of the login flow.
func LoadProvider(path string, chainID *big.Int) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoWallet
		}
		return nil, fmt.Errorf("failed to read wallet key file: %w", err)
	}

	keyHex := strings.TrimSpace(string(data))
	if keyHex == "" {
		return nil, ErrNoAccounts
	}
	return NewProvider(keyHex, chainID)
}

// RequestAccounts returns the connected account addresses. There is always
// exactly one once the provider exists.
func (p *Provider) RequestAccounts() []common.Address {
	return []common.Address{p.address}
}

// Address returns the connected account address.
func (p *Provider) Address() common.Address {
	return p.address
}

// TransactOpts builds signing options for a write call on the provider's
// chain, bound to the given context.
func (p *Provider) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(p.key, p.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transact opts: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
