package warehouse

import "encoding/json"

const (
	CorpusTypeImage           = "IMAGE"
	SearchCapabilityEmbedding = "EMBEDDING_SEARCH"
	IndexTypeVisualEmbedding  = "VISUAL_EMBEDDING"
	DefaultWarehouseHost      = "https://warehouse-visionai.googleapis.com/v1"
)

// SearchCapability declares a capability the corpus is created with.
type SearchCapability struct {
	Type string `json:"type"`
}

// SearchCapabilitySetting wraps the capabilities of a corpus.
type SearchCapabilitySetting struct {
	SearchCapabilities SearchCapability `json:"search_capabilities"`
}

// Corpus represents a Vision Warehouse corpus resource.
type Corpus struct {
	Name                    string                   `json:"name,omitempty"` // Output only. projects/{p}/locations/{l}/corpora/{id}
	DisplayName             string                   `json:"display_name"`
	Description             string                   `json:"description,omitempty"`
	Type                    string                   `json:"type,omitempty"` // e.g., "IMAGE"
	SearchCapabilitySetting *SearchCapabilitySetting `json:"search_capability_setting,omitempty"`
}

// Asset represents an image registered in a corpus.
type Asset struct {
	Name        string `json:"name,omitempty"` // Output only.
	DisplayName string `json:"display_name,omitempty"`
	GcsURI      string `json:"gcs_uri,omitempty"`
}

// CreateAssetRequest defines the request body for creating an asset.
type CreateAssetRequest struct {
	Asset Asset `json:"asset"`
}

// Index represents a server-managed index over a corpus.
type Index struct {
	Name        string `json:"name,omitempty"` // Output only.
	DisplayName string `json:"display_name"`
	IndexType   string `json:"index_type,omitempty"` // e.g., "VISUAL_EMBEDDING"
}

// IndexEndpoint represents an endpoint an index can be deployed to.
type IndexEndpoint struct {
	Name        string `json:"name,omitempty"` // Output only.
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// DeployedIndex names the index being deployed to an endpoint.
type DeployedIndex struct {
	Index string `json:"index"` // Full resource name of the index.
}

// DeployIndexRequest defines the request body for the deployIndex call.
type DeployIndexRequest struct {
	DeployedIndex DeployedIndex `json:"deployedIndex"`
}

// QueryImage points the similarity search at an uploaded image.
type QueryImage struct {
	GcsURI string `json:"gcs_uri"`
}

// FindNeighborsRequest defines the request body for a similarity query.
type FindNeighborsRequest struct {
	QueryImage QueryImage `json:"query_image"`
	MaxResults int        `json:"max_results,omitempty"`
}

// Neighbor is a single similarity match returned by the warehouse.
type Neighbor struct {
	Asset string  `json:"asset"` // Full resource name of the matched asset.
	Score float64 `json:"score"`
}

// FindNeighborsResponse defines the response for a similarity query.
type FindNeighborsResponse struct {
	Neighbors []Neighbor `json:"neighbors"`
}

// ListCorporaParams defines query parameters for listing corpora.
type ListCorporaParams struct {
	PageSize  *int    `url:"page_size,omitempty"`
	PageToken *string `url:"page_token,omitempty"`
}

// ListCorporaResponse defines the response for listing corpora.
type ListCorporaResponse struct {
	Corpora       []Corpus `json:"corpora"`
	NextPageToken string   `json:"next_page_token,omitempty"`
}

// GoogleRpcStatus defines the structure for error details from Google APIs.
type GoogleRpcStatus struct {
	Message string           `json:"message,omitempty"`
	Details []map[string]any `json:"details,omitempty"`
	Code    int              `json:"code,omitempty"`
}

// Operation represents a google.longrunning.Operation returned by the
// warehouse for corpus, index and deployment calls.
type Operation struct {
	Name     string           `json:"name"`
	Done     bool             `json:"done"`
	Error    *GoogleRpcStatus `json:"error,omitempty"`
	Response json.RawMessage  `json:"response,omitempty"`
}
