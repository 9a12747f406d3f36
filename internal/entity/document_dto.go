package entity

import "io"

// DocumentPage is the extracted text of one page. Page is nil for formats without pagination.
type DocumentPage struct {
	Page *int
	Text string
}

type IngestTextRequest struct {
	Source string `json:"source"`
	County string `json:"county"`
	Text   string `json:"text"`
	Page   *int   `json:"page,omitempty"`
}

// IngestFileRequest carries an uploaded or on-disk document to the ingestion use case.
type IngestFileRequest struct {
	Source   string
	County   string
	Filename string
	Size     int64
	Content  io.ReaderAt
}

type IngestResult struct {
	Source        string `json:"source"`
	County        string `json:"county"`
	ChunksCreated int    `json:"chunksCreated"`
	ChunksSkipped int    `json:"chunksSkipped"`
	Tokens        int    `json:"tokenEstimate"`
}

type ListSourcesResponse struct {
	Sources []SourceSummary `json:"sources"`
}

type DeleteSourceResponse struct {
	Status        string `json:"status"`
	ChunksDeleted int64  `json:"chunksDeleted"`
}
