// Package unwrap caches lightmap UV unwraps by mesh content.
//
// Unwrapping a mesh into a lightmap atlas is expensive and fully determined
// by its geometry and texel size. This package keys each result by an MD5
// fingerprint of those inputs and keeps results in a compact, append-only
// cache blob owned by the caller, so repeated unwraps of unchanged geometry
// skip the generator entirely.
//
// This package provides a high-level [Client] that pairs the unwrap service
// with a blob store keyed by resource. For working directly with cache blobs,
// use the [core] subpackage.
//
// # Quick Start
//
// Unwrap against an on-disk store:
//
//	c, err := unwrap.NewClient(unwrap.WithCacheDir("/var/cache/unwrap"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	res, err := c.Unwrap(ctx, "res://meshes/crate.mesh", mesh)
//
// Or keep the blob yourself:
//
//	res, blob, err := c.UnwrapBlob(mesh, blob)
//
// # Stores
//
// Without a store option the client keeps blobs in memory. Use
// [WithCacheDir] for the sharded disk store, [WithBadgerDir] for a Badger
// database, [WithRemoteURL] for an HTTP object server shared between
// machines, or [WithStore] for any [Store] implementation.
//
// # Metrics
//
// [WithMetrics] registers hit, miss, empty-area and corruption counters
// with a Prometheus registerer.
package unwrap
