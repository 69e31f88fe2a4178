package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Ошибки signer'а.
var (
	// ErrInvalidKey — приватный ключ отсутствует или не парсится.
	ErrInvalidKey = errors.New("invalid private key")
)

// Signer подписывает и проверяет сообщения от имени одного аккаунта.
type Signer interface {
	// Address возвращает публичный идентификатор аккаунта.
	Address() string

	// Sign подписывает сообщение ключом аккаунта.
	Sign(message []byte) ([]byte, error)

	// Verify проверяет, что подпись сообщения принадлежит аккаунту.
	Verify(message, signature []byte) bool
}

// WalletSigner — Signer на secp256k1-ключе, EIP-191 personal message.
type WalletSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New создаёт WalletSigner из hex-представления приватного ключа.
// Префикс 0x допускается.
func New(privateKeyHex string) (*WalletSigner, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, ErrInvalidKey
	}

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return &WalletSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address возвращает checksum-адрес аккаунта.
func (s *WalletSigner) Address() string {
	return s.address.Hex()
}

// Sign подписывает сообщение в формате EIP-191.
// V-компонента приводится к 27/28 — формат, ожидаемый серверами.
func (s *WalletSigner) Sign(message []byte) ([]byte, error) {
	sig, err := crypto.Sign(personalHash(message), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Verify восстанавливает публичный ключ из подписи и сравнивает
// адрес с адресом аккаунта.
func (s *WalletSigner) Verify(message, signature []byte) bool {
	if len(signature) != 65 {
		return false
	}

	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := crypto.SigToPub(personalHash(message), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == s.address
}

// personalHash вычисляет EIP-191 хэш сообщения.
func personalHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}

// DeriveAddress возвращает адрес для приватного ключа без создания
// Signer'а (используется при валидации источника аккаунтов).
func DeriveAddress(privateKeyHex string) (string, error) {
	s, err := New(privateKeyHex)
	if err != nil {
		return "", err
	}
	return s.Address(), nil
}
