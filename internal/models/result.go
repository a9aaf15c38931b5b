package models

// NearestBlocks is the result of a similarity search: the best match and the top k, closest first.
type NearestBlocks struct {
	Nearest  string   `json:"nearest"`
	KNearest []string `json:"k_nearest"`
}

// IngestResult reports what a single ingest call stored.
type IngestResult struct {
	Project  string `json:"project"`
	IngestID string `json:"ingest_id"`
	Blocks   int    `json:"blocks"`
}
