// Package frame implements the on-disk encoding of a single log record.
//
// A frame is laid out as follows:
//
//	[length: 4 bytes][checksum: 4 bytes][payload: length bytes]
//
// The length is an unsigned 32-bit integer in little-endian byte order. The
// checksum is a CRC-32 (IEEE polynomial) computed over the encoded length
// bytes followed by the payload bytes, so a frame whose length field was
// damaged is detected just like a frame whose payload was damaged. A frame is
// immutable once written and never spans segment boundaries.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
)

const (
	// LengthSize is the size in bytes of the encoded length field.
	LengthSize = 4

	// ChecksumSize is the size in bytes of the encoded checksum field.
	ChecksumSize = 4

	// HeaderSize is the number of bytes a frame occupies in addition to its
	// payload.
	HeaderSize = LengthSize + ChecksumSize

	// MaxPayloadSize is the largest payload which can be encoded into a
	// single frame, limited by the width of the length field.
	MaxPayloadSize = math.MaxUint32
)

// Endian is the byte order used for serializing integers into frames.
var Endian = binary.LittleEndian

var (
	// ErrFrameTooLarge is returned when a payload exceeds MaxPayloadSize.
	ErrFrameTooLarge = errors.New("frame payload exceeds the maximum encodable size")

	// ErrTruncated is returned when fewer bytes are available than the frame
	// declares. This is the signature of an interrupted write at the tail of
	// the log.
	ErrTruncated = errors.New("frame is truncated")

	// ErrChecksumMismatch is returned when all bytes of a frame are available
	// but the checksum does not match. This is the signature of corruption.
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
)

var checksumTable = crc32.MakeTable(crc32.IEEE)

// EncodedSize returns the number of bytes the frame for a payload of the
// given size occupies.
func EncodedSize(payloadSize int) int64 {
	return HeaderSize + int64(payloadSize)
}

// Encode appends the framed payload to dst and returns the extended slice.
// It fails with ErrFrameTooLarge when the payload does not fit the length
// field. dst is returned unchanged in that case.
func Encode(dst []byte, payload []byte) ([]byte, error) {
	if uint64(len(payload)) > MaxPayloadSize {
		return dst, ErrFrameTooLarge
	}

	var header [HeaderSize]byte
	Endian.PutUint32(header[:LengthSize], uint32(len(payload)))

	checksum := crc32.Checksum(header[:LengthSize], checksumTable)
	checksum = crc32.Update(checksum, checksumTable, payload)
	Endian.PutUint32(header[LengthSize:], checksum)

	dst = append(dst, header[:]...)
	dst = append(dst, payload...)
	return dst, nil
}

// Decode reads a single frame from the reader.
//
// remaining is the number of bytes which are readable before the end of the
// segment or snapshot is reached. The declared frame length is validated
// against it before any payload memory is allocated, so a malformed length
// field can never trigger an absurd allocation.
//
// The data slice allows you to reduce memory allocations. Give a slice with
// enough capacity and this function will decode the payload into it. If the
// capacity is not enough, a new slice is allocated.
//
// The return values are the decoded payload, the number of bytes the frame
// occupies and an error. The error is nil on success, io.EOF when remaining
// is zero (a clean end exactly at a frame boundary), ErrTruncated when the
// available bytes end inside the frame, or ErrChecksumMismatch when the
// frame is complete but damaged.
func Decode(reader io.Reader, data []byte, remaining int64) ([]byte, int64, error) {
	if remaining == 0 {
		return nil, 0, io.EOF
	}
	if remaining < HeaderSize {
		return nil, 0, fmt.Errorf("%w: %d bytes left, need at least %d for the frame header", ErrTruncated, remaining, HeaderSize)
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(reader, header[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, fmt.Errorf("%w: reading frame header: %s", ErrTruncated, err)
		}
		return nil, 0, fmt.Errorf("reading frame header: %w", err)
	}

	length := int64(Endian.Uint32(header[:LengthSize]))
	if remaining-HeaderSize < length {
		return nil, 0, fmt.Errorf("%w: frame declares %d payload bytes but only %d are available", ErrTruncated, length, remaining-HeaderSize)
	}

	if int64(cap(data)) < length {
		data = make([]byte, length)
	}
	data = data[:length]
	if _, err := io.ReadFull(reader, data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, 0, fmt.Errorf("%w: reading frame payload: %s", ErrTruncated, err)
		}
		return nil, 0, fmt.Errorf("reading frame payload: %w", err)
	}

	checksum := crc32.Checksum(header[:LengthSize], checksumTable)
	checksum = crc32.Update(checksum, checksumTable, data)
	if checksum != Endian.Uint32(header[LengthSize:]) {
		return nil, 0, ErrChecksumMismatch
	}
	return data, EncodedSize(int(length)), nil
}
