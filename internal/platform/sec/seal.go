// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

// # Sealed Storage

const (
	sealKeySize   = 32
	sealNonceSize = 24
	sealInfo      = "lexdesk/session-cache/v1"
)

// ErrUnsealFailed is returned when a sealed payload was tampered with, is
// truncated, or was sealed under a different secret.
var ErrUnsealFailed = errors.New("sec: unable to open sealed payload")

// Sealer encrypts small payloads at rest using NaCl secretbox.
//
// The key is derived from an application secret with HKDF-SHA256 so that the
// raw secret never doubles as a cipher key.
type Sealer struct {
	key [sealKeySize]byte
}

// NewSealer derives a sealing key from secret. An empty secret is rejected.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("sec: sealing secret must not be empty")
	}

	sealer := &Sealer{}
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(sealInfo))
	if _, err := io.ReadFull(reader, sealer.key[:]); err != nil {
		return nil, fmt.Errorf("sec: derive sealing key: %w", err)
	}

	return sealer, nil
}

// Seal encrypts plaintext and prepends a random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	var nonce [sealNonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("sec: generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &s.key), nil
}

// Open reverses [Sealer.Seal].
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < sealNonceSize+secretbox.Overhead {
		return nil, ErrUnsealFailed
	}

	var nonce [sealNonceSize]byte
	copy(nonce[:], sealed[:sealNonceSize])

	plaintext, ok := secretbox.Open(nil, sealed[sealNonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnsealFailed
	}
	return plaintext, nil
}
