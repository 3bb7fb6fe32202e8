// Package ledger implements the Algorand-side codecs the order-book engine
// depends on: account address encoding, application escrow address
// derivation, and decoding of application global state into typed values.
//
// Everything here is pure and safe for concurrent use.
package ledger

import (
	"bytes"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"errors"
)

const (
	// PublicKeyLen is the size of an account public key (the address bytes).
	PublicKeyLen = 32
	// ChecksumLen is the number of trailing digest bytes appended to an address.
	ChecksumLen = 4
	// AddressLen is the length of an encoded address: 36 bytes in base-32.
	AddressLen = 58
)

// appIDPrefix is the domain separator hashed in front of an application id.
var appIDPrefix = []byte("appID")

// addressEncoding is RFC 4648 base-32 without "=" padding.
var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

var (
	ErrInvalidKeyLength = errors.New("ledger: public key must be 32 bytes")
	ErrInvalidAddress   = errors.New("ledger: malformed address")
	ErrChecksumMismatch = errors.New("ledger: address checksum mismatch")
)

// ApplicationAddress returns the escrow account address of an application.
//
// The account key is SHA-512/256("appID" || uint64be(appID)); the address is
// that key rendered with EncodeAddress. The result always has AddressLen
// characters from A-Z2-7 and matches the address the ledger assigns.
func ApplicationAddress(appID uint64) string {
	var payload [13]byte
	copy(payload[:5], appIDPrefix)
	binary.BigEndian.PutUint64(payload[5:], appID)

	key := sha512.Sum512_256(payload[:])
	return encode(key[:])
}

// EncodeAddress renders a 32-byte public key as a checksummed base-32 address.
func EncodeAddress(pub []byte) (string, error) {
	if len(pub) != PublicKeyLen {
		return "", ErrInvalidKeyLength
	}
	return encode(pub), nil
}

// DecodeAddress parses a checksummed address back into its 32 key bytes.
func DecodeAddress(addr string) ([]byte, error) {
	if len(addr) != AddressLen {
		return nil, ErrInvalidAddress
	}
	raw, err := addressEncoding.DecodeString(addr)
	if err != nil {
		return nil, ErrInvalidAddress
	}
	if len(raw) != PublicKeyLen+ChecksumLen {
		return nil, ErrInvalidAddress
	}

	pub, sum := raw[:PublicKeyLen], raw[PublicKeyLen:]
	if !bytes.Equal(checksum(pub), sum) {
		return nil, ErrChecksumMismatch
	}
	return pub, nil
}

// IsValidAddress reports whether addr decodes with a valid checksum.
func IsValidAddress(addr string) bool {
	_, err := DecodeAddress(addr)
	return err == nil
}

func encode(pub []byte) string {
	buf := make([]byte, 0, PublicKeyLen+ChecksumLen)
	buf = append(buf, pub...)
	buf = append(buf, checksum(pub)...)
	return addressEncoding.EncodeToString(buf)
}

// checksum is the last ChecksumLen bytes of SHA-512/256(pub).
func checksum(pub []byte) []byte {
	digest := sha512.Sum512_256(pub)
	return digest[len(digest)-ChecksumLen:]
}
