package document

import (
	"context"
	"time"
)

// Data is the render-ready payload handed to the document service: resolved
// names only, no markup.
type Data struct {
	TenantID       string            `json:"tenant_id"`
	DocumentType   string            `json:"document_type"`
	DocumentNumber string            `json:"document_number"`
	Title          string            `json:"title"`
	IssuedAt       time.Time         `json:"issued_at"`
	IssuedBy       string            `json:"issued_by"`
	Header         map[string]string `json:"header"`
	Lines          []Line            `json:"lines"`
}

type Line struct {
	LineNo         int     `json:"line_no"`
	ProductSKU     string  `json:"product_sku"`
	ProductName    string  `json:"product_name"`
	SourceLocation string  `json:"source_location,omitempty"`
	DestLocation   string  `json:"dest_location,omitempty"`
	Quantity       float64 `json:"quantity"`
}

// Renderer persists a document artifact and returns its reference. The
// rendering itself is owned by the document service.
type Renderer interface {
	Render(ctx context.Context, data *Data) (string, error)
}

// NoopRenderer is used when no document service is wired; the document number
// doubles as the artifact reference.
type NoopRenderer struct{}

func (NoopRenderer) Render(_ context.Context, data *Data) (string, error) {
	return data.DocumentNumber, nil
}
