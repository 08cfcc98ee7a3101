package model

import "time"

// RawBatch carries the text of one uploaded source before normalization.
type RawBatch struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Format     Format    `json:"format"`
	Content    string    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
}

// BatchResult summarizes one ingestion run.
type BatchResult struct {
	BatchID string        `json:"batch_id" yaml:"batch_id"`
	Format  Format        `json:"format" yaml:"format"`
	Files   []FileResult  `json:"files" yaml:"files"`
	Lines   int           `json:"lines" yaml:"lines"`
	Records int           `json:"records" yaml:"records"`
	Dropped int           `json:"dropped" yaml:"dropped"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// FileResult summarizes the normalization of one source.
type FileResult struct {
	Name    string `json:"name" yaml:"name"`
	Lines   int    `json:"lines" yaml:"lines"`
	Records int    `json:"records" yaml:"records"`
	Dropped int    `json:"dropped" yaml:"dropped"`
}
