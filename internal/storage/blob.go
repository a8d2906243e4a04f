// Package storage persists uploaded CAD files and hands back opaque
// references that RFQ records carry in place of the file itself.
package storage

import "context"

type BlobStore interface {
	// Upload stores data and returns an opaque reference to it. The
	// original filename is advisory; the reference does not embed it.
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}
