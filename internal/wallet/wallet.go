// Package wallet loads the signing key used to send transactions.
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
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNoSigner = errors.New("signer undefined, remember to set private key when running against mainnet")

type Signer struct {
	key     *ecdsa.PrivateKey
	Address common.Address
	Source  string
}

func (s *Signer) String() string {
	return fmt.Sprintf("%s (%s)", s.Address.Hex(), s.Source)
}

// FromHex parses a raw secp256k1 key, with or without 0x.
func FromHex(hexKey, source string) (*Signer, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, fmt.Errorf("private key missing")
	}
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{key: pk, Address: crypto.PubkeyToAddress(pk.PublicKey), Source: source}, nil
}

// FromKeystore decrypts a V3 keystore file.
func FromKeystore(path, password string) (*Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore %s: %w", path, err)
	}
	return &Signer{key: key.PrivateKey, Address: key.Address, Source: "keystore"}, nil
}

type SecretReader interface {
	ReadSecret(prompt string) (string, error)
}

type Options struct {
	PrivateKey       string
	KeystorePath     string
	KeystorePassword string

	// Prompt, when set, is asked for a missing keystore password and, as a
	// last resort, for a raw private key.
	Prompt SecretReader
}

// Load tries the private key, then the keystore, then the prompt.
func Load(o Options) (*Signer, error) {
	if strings.TrimSpace(o.PrivateKey) != "" {
		return FromHex(o.PrivateKey, "PRIVATE_KEY")
	}

	if path := strings.TrimSpace(o.KeystorePath); path != "" {
		password := o.KeystorePassword
		if password == "" && o.Prompt != nil {
			p, err := o.Prompt.ReadSecret("Keystore password: ")
			if err != nil {
				return nil, fmt.Errorf("keystore password: %w", err)
			}
			password = p
		}
		return FromKeystore(path, password)
	}

	if o.Prompt != nil {
		k, err := o.Prompt.ReadSecret("Private key (hex): ")
		if err == nil && strings.TrimSpace(k) != "" {
			return FromHex(k, "prompt")
		}
	}
	return nil, ErrNoSigner
}

func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}
