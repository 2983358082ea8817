// Package release loads directories of compiled module blobs.
//
// # Main Types
//
//   - Loader: decodes every *.mv file of a directory in parallel
//   - Cache: content-addressed LRU of decoded modules, keyed by SHA3-256
//   - Module: a decoded blob with its file name and hash
//
// # Thread Safety
//
// Loader and Cache are safe for concurrent use. Modules returned by a Cache
// are shared between callers and must not be modified.
//
// # Example
//
//	cache, _ := release.NewCache(1024, format.DefaultDeserializerConfig())
//	l := release.NewLoader(format.DefaultDeserializerConfig(), release.WithCache(cache))
//	mods, err := l.LoadDir(ctx, "releases/artifacts/current/modules")
//	ordered, err := release.DependencyOrder(mods)
package release
