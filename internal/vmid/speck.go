// Package vmid issues and resolves ephemeral merchant identifiers: a
// time-bound, non-reusable substitute a terminal hands out instead of its
// permanent identifier.
package vmid

import (
	"encoding/binary"
	"errors"
	"math/bits"
)

// Lightweight ARX block cipher in the SPECK 64/32 configuration used by the
// identifier scheme: one 64-bit block split into two 32-bit words, a single
// 32-bit round key reused for a fixed number of rounds. It obfuscates the
// merchant identifier prefix for one payment session; it is not a
// cryptographic guarantee.
const (
	blockSize   = 8
	speckRounds = 10
)

var ErrCiphertextSize = errors.New("ciphertext must be exactly one block")

func encryptBlock(x, y, k uint32) (uint32, uint32) {
	for i := 0; i < speckRounds; i++ {
		x = bits.RotateLeft32(x, -8)
		x += y
		x ^= k
		y = bits.RotateLeft32(y, 3)
		y ^= x
	}
	return x, y
}

func decryptBlock(x, y, k uint32) (uint32, uint32) {
	for i := 0; i < speckRounds; i++ {
		y ^= x
		y = bits.RotateLeft32(y, -3)
		x ^= k
		x -= y
		x = bits.RotateLeft32(x, 8)
	}
	return x, y
}

// pad right-pads or truncates s to one block.
func pad(s string) []byte {
	block := make([]byte, blockSize)
	copy(block, s)
	return block
}

// keyWord folds one block of the key string into the single 32-bit round
// key, so every byte of the timestamp-derived key affects the ciphertext.
func keyWord(key string) uint32 {
	block := pad(key)
	return binary.LittleEndian.Uint32(block[:4]) ^ binary.LittleEndian.Uint32(block[4:])
}

// encrypt enciphers the first block of plaintext under key.
func encrypt(plaintext, key string) []byte {
	block := pad(plaintext)
	x := binary.LittleEndian.Uint32(block[:4])
	y := binary.LittleEndian.Uint32(block[4:])

	x, y = encryptBlock(x, y, keyWord(key))

	out := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(out[:4], x)
	binary.LittleEndian.PutUint32(out[4:], y)
	return out
}

// decrypt reverses encrypt and strips the zero padding.
func decrypt(ciphertext []byte, key string) (string, error) {
	if len(ciphertext) != blockSize {
		return "", ErrCiphertextSize
	}

	x := binary.LittleEndian.Uint32(ciphertext[:4])
	y := binary.LittleEndian.Uint32(ciphertext[4:])

	x, y = decryptBlock(x, y, keyWord(key))

	out := make([]byte, blockSize)
	binary.LittleEndian.PutUint32(out[:4], x)
	binary.LittleEndian.PutUint32(out[4:], y)

	end := len(out)
	for end > 0 && out[end-1] == 0 {
		end--
	}
	return string(out[:end]), nil
}
