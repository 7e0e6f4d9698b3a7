// internal/utils/binary/binary.go
package binary

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// DiscriminatorSize is the length of an Anchor account or instruction discriminator.
const DiscriminatorSize = 8

// Discriminator is the 8-byte Anchor tag prefixing accounts and instruction data.
type Discriminator [DiscriminatorSize]byte

// AccountDiscriminator returns sha256("account:<Name>")[:8].
func AccountDiscriminator(name string) Discriminator {
	return hashDiscriminator("account:" + name)
}

// InstructionDiscriminator returns sha256("global:<snake_name>")[:8].
func InstructionDiscriminator(name string) Discriminator {
	return hashDiscriminator("global:" + name)
}

func hashDiscriminator(preimage string) Discriminator {
	sum := sha256.Sum256([]byte(preimage))
	var d Discriminator
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// HasDiscriminator reports whether data starts with d.
func HasDiscriminator(data []byte, d Discriminator) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], d[:])
}

// DecodeAccount verifies the discriminator and borsh-decodes the rest of data into dst.
func DecodeAccount(data []byte, d Discriminator, dst interface{}) error {
	if len(data) < DiscriminatorSize {
		return fmt.Errorf("account data too short: %d bytes", len(data))
	}
	if !HasDiscriminator(data, d) {
		return fmt.Errorf("invalid account discriminator %x", data[:DiscriminatorSize])
	}
	if err := bin.NewBorshDecoder(data[DiscriminatorSize:]).Decode(dst); err != nil {
		return fmt.Errorf("decode account: %w", err)
	}
	return nil
}

// EncodeAccount is the inverse of DecodeAccount. Used to build fixtures.
func EncodeAccount(d Discriminator, src interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if err := bin.NewBorshEncoder(buf).Encode(src); err != nil {
		return nil, fmt.Errorf("encode account: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeInstruction returns discriminator || borsh(args). A nil args encodes no payload.
func EncodeInstruction(d Discriminator, args interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(d[:])
	if args != nil {
		if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
			return nil, fmt.Errorf("encode instruction args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// ReadUint64LittleEndian reads a uint64 from a byte slice in little-endian format
func ReadUint64LittleEndian(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}
