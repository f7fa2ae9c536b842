package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

// ReportArchiver uploads session reports as JSON objects under
// {prefix}/{SYMBOL}/{YYYY-MM-DD}/{session}.json. The date is the session
// end date in UTC.
type ReportArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewReportArchiver creates a ReportArchiver writing through w.
func NewReportArchiver(w domain.BlobWriter, prefix string) *ReportArchiver {
	return &ReportArchiver{writer: w, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for report.
func (a *ReportArchiver) Key(report domain.SessionReport) string {
	return path.Join(
		a.prefix,
		strings.ToUpper(report.Symbol),
		report.EndedAt.UTC().Format("2006-01-02"),
		report.SessionID+".json",
	)
}

// Archive encodes report and uploads it. Reports of MinPartSize or more go
// through the multipart uploader.
func (a *ReportArchiver) Archive(ctx context.Context, report domain.SessionReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal report %s: %w", report.SessionID, err)
	}

	key := a.Key(report)
	if int64(len(data)) >= MinPartSize {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), MinPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive report: %w", err)
	}
	return key, nil
}

var _ domain.ReportArchiver = (*ReportArchiver)(nil)
