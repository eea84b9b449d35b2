package domain

// AssetType tags what an asset descriptor points to.
type AssetType string

const (
	AssetText   AssetType = "text"
	AssetImage  AssetType = "image"
	AssetState  AssetType = "state"
	AssetScript AssetType = "script"
)

// AssetDescriptor locates the data of an asset.
// AssetPath is relative to the per-locale data directory.
type AssetDescriptor struct {
	Key       string    `json:"key"`
	AssetType AssetType `json:"asset_type"`
	AssetPath string    `json:"asset_path"`
	MediaType string    `json:"media_type,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
}
