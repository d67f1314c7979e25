package model

// Asset is a binary attachment embedded inside its owning resource row. It
// exists exclusively for that resource: deleting the row deletes the bytes,
// and replacing a slot discards the previous bytes in the same update.
type Asset struct {
	Data        []byte // raw file bytes
	ContentType string // declared media type, validated before persistence
	Filename    string // original client filename
	Size        int64  // byte length
}

// Present reports whether the asset carries actual content. A slot is either
// fully populated or entirely empty; partially written slots never occur.
func (a *Asset) Present() bool {
	return a != nil && len(a.Data) > 0
}

// Meta strips the payload, leaving only the descriptive fields that list and
// detail projections are allowed to expose.
func (a *Asset) Meta() AssetMeta {
	if !a.Present() {
		return AssetMeta{}
	}
	return AssetMeta{ContentType: a.ContentType, Filename: a.Filename, Size: a.Size}
}

// AssetMeta describes an attachment without carrying its bytes. Listing and
// detail queries only ever select these columns; blob data is fetched through
// the dedicated single-asset read path.
type AssetMeta struct {
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Present reports whether the slot holds an attachment.
func (m AssetMeta) Present() bool { return m.Filename != "" }
