package blobstore

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Checksum returns the CRC32C of data. Snapshot trailers and S3 uploads
// use the same polynomial so a blob can be verified by either side.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// NewChecksum returns a streaming CRC32C.
func NewChecksum() hash.Hash32 {
	return crc32.New(castagnoli)
}

// ChecksumBase64 is Checksum in the big-endian base64 form S3 expects in
// x-amz-checksum-crc32c.
func ChecksumBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(binary.BigEndian.AppendUint32(nil, Checksum(data)))
}
