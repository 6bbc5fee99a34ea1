package model

import (
	"encoding/base64"
	"io"
	"strings"
)

// JobOptions are the fixed options sent when starting a report job. Values are
// strings because that is what the vendor API accepts.
type JobOptions struct {
	FileType       string `json:"fileType"`
	IncludeHeaders string `json:"includeHeaders"`
	AppendDate     string `json:"appendDate"`
	DeleteAfter    string `json:"deleteAfter"`
	Overwrite      string `json:"overwrite"`
}

// DefaultJobOptions produce a CSV with headers and a date suffix, kept server-side for
// seven days and overwriting any same-named file.
func DefaultJobOptions() JobOptions {
	return JobOptions{
		FileType:       "CSV",
		IncludeHeaders: "true",
		AppendDate:     "true",
		DeleteAfter:    "7",
		Overwrite:      "true",
	}
}

// ReportFile holds the base64 content returned by the download endpoint.
type ReportFile struct {
	EncodedContent string
}

// Decoder streams the decoded bytes. Line breaks inside the payload are ignored.
func (f ReportFile) Decoder() io.Reader {
	return base64.NewDecoder(base64.StdEncoding, strings.NewReader(f.EncodedContent))
}
