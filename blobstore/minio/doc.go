// Package minio stores diaggo blobs in MinIO or any other S3-compatible
// server (Ceph, Garage, SeaweedFS) through the MinIO client.
//
//	store, err := minio.New(minio.Config{
//	    Endpoint:  "localhost:9000",
//	    AccessKey: "minioadmin",
//	    SecretKey: "minioadmin",
//	    Bucket:    "runs",
//	    Prefix:    "heisenberg",
//	})
//
// Blobs live under <prefix>/<name>. Snapshots (names ending in .snap) are
// tagged with SnapshotContentType. Put records the CRC32C of the blob in
// user metadata and full reads of such blobs are verified against it.
package minio
