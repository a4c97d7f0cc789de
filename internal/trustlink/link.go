// Package trustlink generates tamper-evident encrypted feedback links and
// manages the blob-cache indirection that lets them be found by matter id.
package trustlink

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"golang.org/x/crypto/pbkdf2"
)

const (
	ivSize  = aes.BlockSize
	macSize = sha256.Size
	keySize = 32

	// evaluationURL is the Trustpilot invitation endpoint, templated with
	// the tenant's review domain segment.
	evaluationURL = "https://www.trustpilot.com/evaluate/%s?p=%s"
)

// requiredFields must be present in every link payload. Generation fails
// without them because an invitation with no addressee is a caller bug.
var requiredFields = []string{"email", "name", "ref"}

// Keys holds the two independent keys the link format needs: one for
// AES-256-CBC encryption and one for HMAC-SHA256 authentication.
type Keys struct {
	Encryption []byte
	Auth       []byte
}

// DeriveKeys stretches a tenant secret into the encryption and auth keys
// using PBKDF2-SHA256 with role-separated salts.
func DeriveKeys(secret string) Keys {
	return Keys{
		Encryption: pbkdf2.Key([]byte(secret), []byte("trustlink-enc"), 4096, keySize, sha256.New),
		Auth:       pbkdf2.Key([]byte(secret), []byte("trustlink-auth"), 4096, keySize, sha256.New),
	}
}

// Service builds invitation links for one tenant.
type Service struct {
	keys   Keys
	domain string
}

// NewService constructs a link service for the tenant's review domain
// segment, e.g. "cca.com.au".
func NewService(keys Keys, domain string) (*Service, error) {
	if len(keys.Encryption) != keySize || len(keys.Auth) != keySize {
		return nil, fmt.Errorf("trustlink keys must be %d bytes", keySize)
	}
	if domain == "" {
		return nil, fmt.Errorf("trustlink domain segment required")
	}
	return &Service{keys: keys, domain: domain}, nil
}

// GenerateLink encrypts and authenticates the payload and returns the full
// invitation URL. The payload must carry email, name and ref; arbitrary
// extra string fields ride along.
func (s *Service) GenerateLink(payload map[string]string) (string, error) {
	for _, field := range requiredFields {
		if payload[field] == "" {
			return "", fmt.Errorf("trustlink payload missing required field %q", field)
		}
	}

	plain, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	sealed, err := s.seal(plain)
	if err != nil {
		return "", err
	}
	token := base64.StdEncoding.EncodeToString(sealed)
	return fmt.Sprintf(evaluationURL, s.domain, url.QueryEscape(token)), nil
}

// seal produces IV || ciphertext || HMAC(IV || ciphertext).
func (s *Service) seal(plain []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.keys.Encryption)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad(plain, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	mac := hmac.New(sha256.New, s.keys.Auth)
	mac.Write(iv)
	mac.Write(ciphertext)

	out := make([]byte, 0, ivSize+len(ciphertext)+macSize)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, mac.Sum(nil)...)
	return out, nil
}

// Open reverses seal: it verifies the HMAC and decrypts the payload. It
// exists for the resolve endpoint and for tests; the link consumer is
// normally Trustpilot's side.
func (s *Service) Open(token string) (map[string]string, error) {
	sealed, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	if len(sealed) < ivSize+aes.BlockSize+macSize {
		return nil, fmt.Errorf("token too short")
	}

	body, tag := sealed[:len(sealed)-macSize], sealed[len(sealed)-macSize:]
	mac := hmac.New(sha256.New, s.keys.Auth)
	mac.Write(body)
	if !hmac.Equal(tag, mac.Sum(nil)) {
		return nil, fmt.Errorf("token authentication failed")
	}

	iv, ciphertext := body[:ivSize], body[ivSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext not block aligned")
	}
	block, err := aes.NewCipher(s.keys.Encryption)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, err
	}

	var payload map[string]string
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
