// Package s3 provides a chunkstore.Store backed by the Amazon S3 REST
// API, suitable for S3-compatible object stores such as RADOS Gateway
// and MinIO.
//
// # Usage
//
//	store, err := s3.New("http://127.0.0.1:9000",
//	    s3.WithTimeout(30*time.Second),
//	    s3.WithCredentials(accessKey, secretKey),
//	)
//
//	chunk, err := store.GetChunk(ctx, "bucket/x", slices, chunkstore.Float32)
//
// # Features
//
//   - Chunks stored as plain NPY objects under "<path>/<idx>.npy"
//   - Bearer-token or AWS-signed authentication
//   - Automatic pagination for listing
//   - Content-MD5 integrity on every upload
//   - Optional public-read policy and object expiry on created buckets
package s3
