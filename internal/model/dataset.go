package model

import "time"

// DatasetRecord is the index entry for an uploaded dataset.
// It links the public ID to the stored object and carries the upload time captured at creation.
type DatasetRecord struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	StorageKey string    `json:"storage_key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Dataset is the metadata returned to clients for an uploaded CSV file.
// Headers and RowCount are derived from the file content on every read.
type Dataset struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	StorageKey  string    `json:"storageKey"`
	UploadDate  time.Time `json:"uploadDate"`
	Headers     []string  `json:"headers"`
	RowCount    int       `json:"rowCount"`
	PreviewData []Row     `json:"previewData,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewDataset builds the metadata view of a record. Headers is never nil so it encodes as [].
func NewDataset(rec DatasetRecord, headers []string, rowCount int) Dataset {
	if headers == nil {
		headers = []string{}
	}
	return Dataset{
		ID:         rec.ID,
		Filename:   rec.Filename,
		StorageKey: rec.StorageKey,
		UploadDate: rec.UploadedAt,
		Headers:    headers,
		RowCount:   rowCount,
	}
}
