// Package document defines the shared data model for recognized documents:
// bounding geometry, tokens, pages, derived layout, and batch results.
package document

// BoundingBox is an axis-aligned rectangle in page pixel space.
type BoundingBox struct {
	// X is the left coordinate (pixels from the left edge)
	X int `json:"x"`

	// Y is the top coordinate (pixels from the top edge)
	Y int `json:"y"`

	// Width is the box width in pixels (never negative)
	Width int `json:"width"`

	// Height is the box height in pixels (never negative)
	Height int `json:"height"`
}

// NewBoundingBox creates a BoundingBox, clamping negative dimensions to zero.
func NewBoundingBox(x, y, width, height int) BoundingBox {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return BoundingBox{X: x, Y: y, Width: width, Height: height}
}

// Right returns the right edge coordinate.
func (b BoundingBox) Right() int {
	return b.X + b.Width
}

// Bottom returns the bottom edge coordinate.
func (b BoundingBox) Bottom() int {
	return b.Y + b.Height
}

// CenterX returns the horizontal center of the box.
func (b BoundingBox) CenterX() float64 {
	return float64(b.X) + float64(b.Width)/2
}

// CenterY returns the vertical center of the box.
func (b BoundingBox) CenterY() float64 {
	return float64(b.Y) + float64(b.Height)/2
}

// Area returns the area of the box in square pixels.
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Clamp constrains the box to the page extent (pageWidth x pageHeight).
// Minor overshoot is corrected rather than rejected. A zero extent means
// the page dimensions are unknown and the box is returned unchanged.
func (b BoundingBox) Clamp(pageWidth, pageHeight int) BoundingBox {
	if pageWidth <= 0 || pageHeight <= 0 {
		return b
	}

	if b.X < 0 {
		b.Width += b.X
		b.X = 0
	}
	if b.Y < 0 {
		b.Height += b.Y
		b.Y = 0
	}
	if b.X > pageWidth {
		b.X = pageWidth
	}
	if b.Y > pageHeight {
		b.Y = pageHeight
	}
	if b.Right() > pageWidth {
		b.Width = pageWidth - b.X
	}
	if b.Bottom() > pageHeight {
		b.Height = pageHeight - b.Y
	}
	if b.Width < 0 {
		b.Width = 0
	}
	if b.Height < 0 {
		b.Height = 0
	}
	return b
}

// HorizontalOverlap returns the width of the horizontal overlap with other,
// or 0 if the boxes do not overlap on the x axis.
func (b BoundingBox) HorizontalOverlap(other BoundingBox) int {
	left := max(b.X, other.X)
	right := min(b.Right(), other.Right())
	if right <= left {
		return 0
	}
	return right - left
}

// VerticalOverlap returns the height of the vertical overlap with other,
// or 0 if the boxes do not overlap on the y axis.
func (b BoundingBox) VerticalOverlap(other BoundingBox) int {
	top := max(b.Y, other.Y)
	bottom := min(b.Bottom(), other.Bottom())
	if bottom <= top {
		return 0
	}
	return bottom - top
}

// Intersects returns true if this box intersects other.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.HorizontalOverlap(other) > 0 && b.VerticalOverlap(other) > 0
}

// Union returns the smallest box containing both b and other.
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	x := min(b.X, other.X)
	y := min(b.Y, other.Y)
	right := max(b.Right(), other.Right())
	bottom := max(b.Bottom(), other.Bottom())
	return BoundingBox{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Token is a single recognized text unit. Tokens are immutable once
// produced by the recognizer gateway.
type Token struct {
	// Text is the recognized text content
	Text string `json:"text"`

	// BoundingBox is the position and size of the token on the page
	BoundingBox BoundingBox `json:"bounding_box"`

	// Confidence is the recognition confidence in [0, 1]
	Confidence float64 `json:"confidence"`

	// Language is the detected BCP-47 language code, if any
	Language string `json:"language,omitempty"`
}

// NewToken creates a Token with the confidence clamped into [0, 1].
func NewToken(text string, bbox BoundingBox, confidence float64) Token {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return Token{Text: text, BoundingBox: bbox, Confidence: confidence}
}

// Page holds the tokens recognized on one page, in the order the remote
// service returned them. That order is NOT guaranteed to be reading order;
// see PageLayout for the reconstructed sequence.
type Page struct {
	// Index is the zero-based page index within the document
	Index int `json:"index"`

	// Width is the page image width in pixels
	Width int `json:"width"`

	// Height is the page image height in pixels
	Height int `json:"height"`

	// Tokens are the recognized tokens in service-returned order
	Tokens []Token `json:"tokens"`

	// Error records why recognition of this page failed, if it did
	Error string `json:"error,omitempty"`

	// Layout is the reconstructed spatial layout, populated after analysis
	Layout *PageLayout `json:"layout,omitempty"`
}

// AddToken appends a token to the page, clamping its box to the page extent.
func (p *Page) AddToken(t Token) {
	t.BoundingBox = t.BoundingBox.Clamp(p.Width, p.Height)
	p.Tokens = append(p.Tokens, t)
}

// Failed reports whether recognition of this page failed.
func (p *Page) Failed() bool {
	return p.Error != ""
}

// Text returns the page text with tokens joined by spaces. When a layout has
// been computed the reconstructed reading order is used, otherwise tokens
// appear in service-returned order.
func (p *Page) Text() string {
	order := make([]int, 0, len(p.Tokens))
	if p.Layout != nil && len(p.Layout.ReadingOrder) == len(p.Tokens) {
		order = append(order, p.Layout.ReadingOrder...)
	} else {
		for i := range p.Tokens {
			order = append(order, i)
		}
	}

	text := ""
	for i, idx := range order {
		if i > 0 {
			text += " "
		}
		text += p.Tokens[idx].Text
	}
	return text
}

// PageLayout is the derived spatial structure of a page. It is recomputed
// per analysis and refers to tokens by their index in Page.Tokens.
type PageLayout struct {
	// ReadingOrder is a permutation of the page's token indices in
	// natural reading sequence
	ReadingOrder []int `json:"reading_order"`

	// Columns are the detected vertical reading bands, left to right
	Columns []Column `json:"columns"`

	// Tables are the detected grid-aligned regions, if any
	Tables []TableRegion `json:"tables,omitempty"`
}

// Column is a vertical band of the page treated as one reading stream.
type Column struct {
	// XMin is the left edge of the band in pixels
	XMin int `json:"x_min"`

	// XMax is the right edge of the band in pixels
	XMax int `json:"x_max"`

	// Tokens are the indices of the tokens assigned to this column,
	// already in reading order within the column
	Tokens []int `json:"tokens"`
}

// TableRegion is a detected grid of rows x columns of token cells.
type TableRegion struct {
	// BoundingBox is the area covered by the table
	BoundingBox BoundingBox `json:"bounding_box"`

	// Rows is the number of detected grid rows
	Rows int `json:"rows"`

	// Columns is the number of detected grid columns
	Columns int `json:"columns"`

	// Cells holds the non-empty cells with their token indices
	Cells []TableCell `json:"cells"`
}

// TableCell is one occupied cell of a table grid.
type TableCell struct {
	// Row is the zero-based grid row
	Row int `json:"row"`

	// Column is the zero-based grid column
	Column int `json:"column"`

	// Tokens are the indices of the tokens inside this cell
	Tokens []int `json:"tokens"`
}
