// Package blob adapts gocloud.dev buckets to the Fable ports.
//
// Any bucket URL supported by a registered driver can be used. This package registers
// the file:// and mem:// drivers; hosts import cloud drivers (s3blob, gcsblob,
// azureblob) themselves. The asset layout matches the file adapter:
//
//	descriptors/<dir>/<name>.json
//	data/<locale>/<path>
package blob
