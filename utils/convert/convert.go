package convert

import (
	"encoding/binary"
	"math"
)

// Byte moves for the binary codec. SDDS declares endianness per file, so
// every helper takes the byte order instead of assuming one.

func U16ToBytes(buf []byte, v uint16, bo binary.ByteOrder) {
	bo.PutUint16(buf, v)
}

func U32ToBytes(buf []byte, v uint32, bo binary.ByteOrder) {
	bo.PutUint32(buf, v)
}

func U64ToBytes(buf []byte, v uint64, bo binary.ByteOrder) {
	bo.PutUint64(buf, v)
}

func F32ToBytes(buf []byte, v float32, bo binary.ByteOrder) {
	bo.PutUint32(buf, math.Float32bits(v))
}

func F64ToBytes(buf []byte, v float64, bo binary.ByteOrder) {
	bo.PutUint64(buf, math.Float64bits(v))
}

func BytesToU16(buf []byte, bo binary.ByteOrder) uint16 {
	return bo.Uint16(buf)
}

func BytesToU32(buf []byte, bo binary.ByteOrder) uint32 {
	return bo.Uint32(buf)
}

func BytesToU64(buf []byte, bo binary.ByteOrder) uint64 {
	return bo.Uint64(buf)
}

func BytesToF32(buf []byte, bo binary.ByteOrder) float32 {
	return math.Float32frombits(bo.Uint32(buf))
}

func BytesToF64(buf []byte, bo binary.ByteOrder) float64 {
	return math.Float64frombits(bo.Uint64(buf))
}
