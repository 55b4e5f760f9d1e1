// Package atlas adapts a chart packer into the unwrap result shape.
//
// The packer is an opaque, deterministic computation: it decomposes a mesh
// into charts and packs them into a texel atlas. The [Adapter] applies a
// fixed packing policy, detects meshes with no unwrappable area, normalizes
// UVs into [0,1] and releases the packer's buffers on every exit path.
package atlas
