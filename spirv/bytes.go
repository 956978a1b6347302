// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotSPIRV is returned when a byte stream does not start with the SPIR-V
// magic number in either byte order.
var ErrNotSPIRV = errors.New("spirv: missing magic number")

// FromBytes converts a binary module to words. Big-endian input, detected
// from the byte-swapped magic number, is converted to host words.
func FromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("spirv: length %d is not a multiple of 4", len(data))
	}
	if len(data) < 4 {
		return nil, ErrNotSPIRV
	}
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(data) == MagicNumber:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(data) == MagicNumber:
		order = binary.BigEndian
	default:
		return nil, ErrNotSPIRV
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4:])
	}
	return words, nil
}

// ToBytes converts words to a little-endian binary module.
func ToBytes(words []uint32) []byte {
	buffer := make([]byte, len(words)*4)
	for i, word := range words {
		binary.LittleEndian.PutUint32(buffer[i*4:], word)
	}
	return buffer
}
