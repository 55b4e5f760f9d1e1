// Package envelope frames unwrap cache blobs for persistence.
//
// The in-memory blob format carries no version or checksum. When a blob
// leaves the process it is wrapped as:
//
//	magic "UVC1" | header_len uint32 LE | header (FlatBuffers) | payload
//
// The header records the format version, payload compression, entry count,
// uncompressed size and the OCI digest of the raw blob. Unmarshal verifies
// all of them and validates the blob structure before returning it.
package envelope
