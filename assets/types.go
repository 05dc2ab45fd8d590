// Package assets finds, classifies, and uploads the binary resources embedded
// in a captured document and its stylesheet text: images, fonts, media, and
// data URIs. Uploads are content-addressed — the digest of the bytes is the
// dedup identity — so re-publishing a document never re-sends bytes the store
// has already seen.
package assets

import "context"

// FileType is a classified asset type.
type FileType struct {
	Ext  string
	MIME string
}

// Item is one asset queued for upload. It is not retained after its
// OnResolved callback fires.
type Item struct {
	Type    FileType
	Hash    string
	Content []byte
	ByteLen int
	// OnResolved receives the asset's public URL once the upload (or a
	// deduplicated sibling's upload) completes.
	OnResolved func(url string)
}

// Uploader performs one transport upload for an item's content.
// Implementations must not retry internally; retry policy belongs to the
// transport layer.
type Uploader interface {
	Upload(ctx context.Context, it Item) (url string, err error)
}

// Progress receives queue status updates during a flush.
type Progress func(done, total int)
