// Package chunkstore provides a store of chunks, i.e. N-dimensional
// pieces of large numeric arrays.
//
// A large array is cut into a grid of chunks, each persisted as a single
// self-describing object, so that any chunk can be read or written
// independently and in parallel. The primary backend speaks the Amazon S3
// REST API (see the s3 subpackage); MemStore keeps chunks in memory for
// testing and staging.
//
// # Quick Start
//
//	ctx := context.Background()
//	store, _ := s3.New("http://archive:7480", s3.WithTimeout(30*time.Second))
//
//	// Cut a large array into chunks of at most 16 MB.
//	data, _ := chunkstore.FromSlice(samples, 10, 8192, 144)
//	partition, _ := chunkstore.GenerateChunks(data.Shape(), data.DType(), 16<<20)
//
//	// Store and retrieve the whole array, chunk by chunk, concurrently.
//	_ = store.CreateArray(ctx, "bucket/x")
//	_ = chunkstore.PutArray(ctx, store, "bucket/x", data, partition)
//	back, _ := chunkstore.GetArray(ctx, store, "bucket/x", data.DType(), partition)
//
// Individual chunks are addressed by the array name and the index ranges
// they cover:
//
//	slices := []chunkstore.Slice{{0, 1, 1}, {0, 2048, 1}, {0, 144, 1}}
//	chunk, _ := store.GetChunk(ctx, "bucket/x", slices, chunkstore.Complex64)
//
// # Error Handling
//
// Every failure wraps one of four sentinel error kinds, so callers can
// classify errors with errors.Is regardless of the backend:
//
//	_, err := store.GetChunk(ctx, name, slices, dtype)
//	if errors.Is(err, chunkstore.ErrChunkNotFound) {
//	    // chunk has not been written yet
//	}
//
// # Key Features
//
//   - Chunks stored as standard NPY objects, readable by any NumPy-aware
//     tool
//   - Greedy chunk sizing with even, optionally power-of-two blocks
//   - Concurrent bulk transfer of whole arrays
//   - Presence tracking over compressed bitmaps
//   - Pluggable structured logging and metrics collection
package chunkstore
