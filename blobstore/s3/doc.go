// Package s3 stores blobs in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("diaggo/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//	err = snapshot.Save(ctx, store, "heisenberg-n24", rec)
//
// Small blobs are written with a single PutObject carrying a CRC32C
// checksum; Create streams larger blobs through multipart uploads.
package s3
