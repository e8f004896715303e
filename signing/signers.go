package signing

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Method names a signature algorithm
type Method string

const (
	MethodEd25519   Method = "ed25519"
	MethodSecp256r1 Method = "secp256r1"
	MethodSecp256k1 Method = "secp256k1"
)

// ParseMethod parses a signing method name, case-insensitively
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(s)); m {
	case MethodEd25519, MethodSecp256r1, MethodSecp256k1:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported signing method %q", s)
	}
}

// Signer produces signatures with one private key
type Signer interface {
	Method() Method
	// PublicKey returns the key bytes published as the signature's key id
	PublicKey() []byte
	// PrivateKey returns the key bytes accepted by NewSigner
	PrivateKey() []byte
	Sign(message []byte) ([]byte, error)
}

// GenerateSigner creates a signer with a fresh key
func GenerateSigner(method Method) (Signer, error) {
	switch method {
	case MethodEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		return &Ed25519Signer{key: priv}, nil
	case MethodSecp256r1:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256r1 key: %w", err)
		}
		return &P256Signer{key: priv}, nil
	case MethodSecp256k1:
		priv, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
		}
		return &Secp256k1Signer{key: priv}, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method)
	}
}

// NewSigner restores a signer from key bytes produced by PrivateKey
func NewSigner(method Method, privateKey []byte) (Signer, error) {
	switch method {
	case MethodEd25519:
		switch len(privateKey) {
		case ed25519.SeedSize:
			return &Ed25519Signer{key: ed25519.NewKeyFromSeed(privateKey)}, nil
		case ed25519.PrivateKeySize:
			return &Ed25519Signer{key: ed25519.PrivateKey(privateKey)}, nil
		default:
			return nil, fmt.Errorf("ed25519 key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(privateKey))
		}
	case MethodSecp256r1:
		priv, err := x509.ParseECPrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256r1 key: %w", err)
		}
		if priv.Curve != elliptic.P256() {
			return nil, fmt.Errorf("invalid secp256r1 key: wrong curve %s", priv.Curve.Params().Name)
		}
		return &P256Signer{key: priv}, nil
	case MethodSecp256k1:
		priv, err := crypto.ToECDSA(privateKey)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 key: %w", err)
		}
		return &Secp256k1Signer{key: priv}, nil
	default:
		return nil, fmt.Errorf("unsupported signing method %q", method)
	}
}

// Ed25519Signer signs the message itself
type Ed25519Signer struct {
	key ed25519.PrivateKey
}

func (s *Ed25519Signer) Method() Method { return MethodEd25519 }

func (s *Ed25519Signer) PublicKey() []byte {
	return []byte(s.key.Public().(ed25519.PublicKey))
}

func (s *Ed25519Signer) PrivateKey() []byte {
	return s.key.Seed()
}

func (s *Ed25519Signer) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(s.key, message), nil
}

// P256Signer signs the SHA-256 digest of the message with an ASN.1 encoded signature
type P256Signer struct {
	key *ecdsa.PrivateKey
}

func (s *P256Signer) Method() Method { return MethodSecp256r1 }

// PublicKey returns the PKIX DER encoding of the public key
func (s *P256Signer) PublicKey() []byte {
	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return nil
	}
	return der
}

// PrivateKey returns the SEC 1 DER encoding of the private key
func (s *P256Signer) PrivateKey() []byte {
	der, err := x509.MarshalECPrivateKey(s.key)
	if err != nil {
		return nil
	}
	return der
}

func (s *P256Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)
	return ecdsa.SignASN1(rand.Reader, s.key, digest[:])
}

// Secp256k1Signer signs the Keccak-256 digest of the message, Ethereum style
type Secp256k1Signer struct {
	key *ecdsa.PrivateKey
}

func (s *Secp256k1Signer) Method() Method { return MethodSecp256k1 }

// PublicKey returns the 33 byte compressed public key
func (s *Secp256k1Signer) PublicKey() []byte {
	return crypto.CompressPubkey(&s.key.PublicKey)
}

func (s *Secp256k1Signer) PrivateKey() []byte {
	return crypto.FromECDSA(s.key)
}

// Sign returns the 65 byte [R || S || V] signature
func (s *Secp256k1Signer) Sign(message []byte) ([]byte, error) {
	return crypto.Sign(crypto.Keccak256Hash(message).Bytes(), s.key)
}

// verify checks signature over message against an encoded public key
func verify(method Method, publicKey, message, signature []byte) (bool, error) {
	switch method {
	case MethodEd25519:
		if len(publicKey) != ed25519.PublicKeySize {
			return false, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
		}
		return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature), nil
	case MethodSecp256r1:
		parsed, err := x509.ParsePKIXPublicKey(publicKey)
		if err != nil {
			return false, fmt.Errorf("invalid secp256r1 public key: %w", err)
		}
		pub, ok := parsed.(*ecdsa.PublicKey)
		if !ok || pub.Curve != elliptic.P256() {
			return false, fmt.Errorf("invalid secp256r1 public key: not a P-256 key")
		}
		digest := sha256.Sum256(message)
		return ecdsa.VerifyASN1(pub, digest[:], signature), nil
	case MethodSecp256k1:
		if len(signature) == crypto.SignatureLength {
			signature = signature[:crypto.SignatureLength-1]
		}
		if len(signature) != crypto.SignatureLength-1 {
			return false, fmt.Errorf("secp256k1 signature must be %d or %d bytes, got %d", crypto.SignatureLength-1, crypto.SignatureLength, len(signature))
		}
		if _, err := crypto.DecompressPubkey(publicKey); err != nil && len(publicKey) != 65 {
			return false, fmt.Errorf("invalid secp256k1 public key: %w", err)
		}
		return crypto.VerifySignature(publicKey, crypto.Keccak256Hash(message).Bytes(), signature), nil
	default:
		return false, fmt.Errorf("unsupported signing method %q", method)
	}
}
