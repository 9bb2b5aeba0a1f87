package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDecryption covers every way a QR token can fail to decode: wrong
// shape, bad hex, wrong IV length, corrupt ciphertext. Callers must
// treat it as an error to surface, never as "no data".
var ErrDecryption = errors.New("could not decrypt message")

const keySize = 32

// EncryptPayload serializes payload and encrypts it with AES-256-CBC
// under a fresh random IV. The token format is hex(iv):hex(ciphertext).
func EncryptPayload(key []byte, payload any) (string, error) {
	if len(key) != keySize {
		return "", fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)
	return fmt.Sprintf("%s:%s", hex.EncodeToString(iv), hex.EncodeToString(cipherText)), nil
}

// DecryptPayload reverses EncryptPayload into out.
func DecryptPayload(key []byte, token string, out any) error {
	if len(key) != keySize {
		return fmt.Errorf("encryption key must be %d bytes, got %d", keySize, len(key))
	}
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("%w: token must have two colon-separated fields", ErrDecryption)
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDecryption, err.Error())
	}
	if len(iv) != aes.BlockSize {
		return fmt.Errorf("%w: iv must be %d bytes, got %d", ErrDecryption, aes.BlockSize, len(iv))
	}
	cipherText, err := hex.DecodeString(parts[1])
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDecryption, err.Error())
	}
	if len(cipherText) == 0 || len(cipherText)%aes.BlockSize != 0 {
		return fmt.Errorf("%w: ciphertext is not a whole number of blocks", ErrDecryption)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	plaintext := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, cipherText)
	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDecryption, err.Error())
	}
	if err := json.Unmarshal(unpadded, out); err != nil {
		return fmt.Errorf("%w: %s", ErrDecryption, err.Error())
	}
	return nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
