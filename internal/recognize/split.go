package recognize

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// chunk is one unit of work against the remote capability: a single image
// or a contiguous page range of a PDF.
type chunk struct {
	data        []byte
	contentType string

	// start is the zero-based index of the chunk's first page within
	// the original document
	start int

	// pages is the number of pages carried by this chunk
	pages int
}

// split divides a document into chunks that respect the service's page
// limit. Images are always a single one-page chunk. PDFs at or under the
// limit pass through whole; larger PDFs are cut into page ranges with
// pdfcpu. Split failures are permanent: a PDF that cannot be read will
// not parse any better on retry.
func (g *Gateway) split(data []byte, contentType string) ([]chunk, error) {
	if len(data) == 0 {
		return nil, Permanentf("empty document")
	}

	if contentType != ContentTypePDF {
		return []chunk{{data: data, contentType: contentType, start: 0, pages: 1}}, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, Permanentf("failed to read PDF: %v", err)
	}
	if pageCount == 0 {
		return nil, Permanentf("PDF has no pages")
	}

	if pageCount <= g.maxPagesPerCall {
		return []chunk{{data: data, contentType: contentType, start: 0, pages: pageCount}}, nil
	}

	var chunks []chunk
	for start := 0; start < pageCount; start += g.maxPagesPerCall {
		end := start + g.maxPagesPerCall
		if end > pageCount {
			end = pageCount
		}

		// pdfcpu page selections are 1-based and inclusive
		selection := []string{fmt.Sprintf("%d-%d", start+1, end)}

		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(data), &buf, selection, conf); err != nil {
			return nil, Permanentf("failed to split PDF pages %s: %v", selection[0], err)
		}

		chunks = append(chunks, chunk{
			data:        buf.Bytes(),
			contentType: contentType,
			start:       start,
			pages:       end - start,
		})
	}

	return chunks, nil
}
