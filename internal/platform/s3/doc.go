// Package s3 checks backup buckets on S3-compatible object storage before
// components that archive into them are applied.
package s3
