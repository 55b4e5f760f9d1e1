// Package record encodes unwrap cache entries and scans cache blobs.
//
// A blob is a little-endian uint32 entry count followed by that many records:
//
//	fingerprint(16) | width(4) | height(4) | vertex_count(4) |
//	vertices(4*v) | uvs(8*v) | index_count(4) | indices(4*i)
//
// Records have variable length, so a scan decodes vertex_count and
// index_count incrementally to find the next record. There is no index and no
// sort order; records appear in insertion order.
package record
