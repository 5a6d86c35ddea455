// Package layout reconstructs the spatial structure of a recognized page:
// reading order, column bands, and tabular regions. Analysis is pure and
// deterministic; it performs no I/O and cannot fail, since all input
// geometry is clamped by the document model.
package layout

import (
	"sort"

	"github.com/platinummonkey/docsift/internal/document"
)

// Config holds the tunable detection thresholds. The defaults follow the
// heuristics the analyzer was calibrated with; tests exercise behavior at
// the boundaries.
type Config struct {
	// ColumnGapRatio qualifies a horizontal gap as a column separator
	// when the gap is wider than this multiple of the median token width.
	// The same ratio, against the median token height, qualifies row
	// separators during table detection.
	ColumnGapRatio float64

	// LineOverlapRatio groups two tokens into the same line when their
	// vertical ranges overlap by more than this fraction of the smaller
	// token height
	LineOverlapRatio float64

	// TableFillRatio is the minimum occupied fraction of grid cells for
	// a candidate grid to count as a table
	TableFillRatio float64

	// MinTableRows is the minimum number of grid rows for a table
	MinTableRows int

	// MinTableCols is the minimum number of grid columns for a table
	MinTableCols int
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ColumnGapRatio:   1.5,
		LineOverlapRatio: 0.5,
		TableFillRatio:   0.6,
		MinTableRows:     2,
		MinTableCols:     2,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ColumnGapRatio <= 0 {
		c.ColumnGapRatio = def.ColumnGapRatio
	}
	if c.LineOverlapRatio <= 0 {
		c.LineOverlapRatio = def.LineOverlapRatio
	}
	if c.TableFillRatio <= 0 {
		c.TableFillRatio = def.TableFillRatio
	}
	if c.MinTableRows <= 0 {
		c.MinTableRows = def.MinTableRows
	}
	if c.MinTableCols <= 0 {
		c.MinTableCols = def.MinTableCols
	}
	return c
}

// Analyzer reconstructs page layout from token geometry.
type Analyzer struct {
	cfg Config
}

// New creates an Analyzer, filling unset thresholds with defaults.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.withDefaults()}
}

// Analyze computes the layout of a page. An empty token set yields an
// empty layout, not an error. The returned reading order is always a
// permutation of the page's token indices.
func (a *Analyzer) Analyze(page document.Page) document.PageLayout {
	result := document.PageLayout{
		ReadingOrder: []int{},
		Columns:      []document.Column{},
	}
	if len(page.Tokens) == 0 {
		return result
	}

	columns := a.detectColumns(page.Tokens)
	a.assignTokens(page.Tokens, columns)
	for i := range columns {
		a.orderColumn(page.Tokens, &columns[i])
	}

	result.Columns = columns
	for _, col := range columns {
		result.ReadingOrder = append(result.ReadingOrder, col.Tokens...)
	}

	if table, ok := a.detectTable(page.Tokens); ok {
		result.Tables = []document.TableRegion{table}
	}

	return result
}

// span is a closed-open occupied interval on one axis.
type span struct {
	lo, hi int
}

// detectColumns projects token boxes onto the x axis and splits the page
// at maximal gaps that are wider than the configured multiple of the
// median token width and are straddled by vertically-overlapping token
// groups on both sides. A single-column page is the degenerate case of
// zero qualifying gaps.
func (a *Analyzer) detectColumns(tokens []document.Token) []document.Column {
	bands := mergedSpans(tokens, horizontalSpan)
	threshold := a.cfg.ColumnGapRatio * medianExtent(tokens, tokenWidth)

	columns := []document.Column{}
	start := bands[0]
	cur := bands[0]
	for _, band := range bands[1:] {
		gap := band.lo - cur.hi
		if float64(gap) > threshold && gapStraddled(tokens, cur.hi, band.lo) {
			columns = append(columns, document.Column{XMin: start.lo, XMax: cur.hi})
			start = band
		}
		cur = band
	}
	columns = append(columns, document.Column{XMin: start.lo, XMax: cur.hi})
	return columns
}

// gapStraddled reports whether the tokens on each side of the gap
// vertically overlap each other, i.e. the gap separates side-by-side
// reading streams rather than, say, a heading from body text.
func gapStraddled(tokens []document.Token, gapLo, gapHi int) bool {
	const unset = -1
	lTop, lBottom := unset, unset
	rTop, rBottom := unset, unset

	for _, t := range tokens {
		box := t.BoundingBox
		switch {
		case box.Right() <= gapLo:
			if lTop == unset || box.Y < lTop {
				lTop = box.Y
			}
			if box.Bottom() > lBottom {
				lBottom = box.Bottom()
			}
		case box.X >= gapHi:
			if rTop == unset || box.Y < rTop {
				rTop = box.Y
			}
			if box.Bottom() > rBottom {
				rBottom = box.Bottom()
			}
		}
	}

	if lTop == unset || rTop == unset {
		return false
	}
	return min(lBottom, rBottom) > max(lTop, rTop)
}

// assignTokens places every token into the column with the largest
// horizontal overlap, falling back to the nearest band center for tokens
// that overlap none.
func (a *Analyzer) assignTokens(tokens []document.Token, columns []document.Column) {
	for i, t := range tokens {
		best := 0
		bestOverlap := -1
		for c, col := range columns {
			colBox := document.BoundingBox{X: col.XMin, Y: t.BoundingBox.Y, Width: col.XMax - col.XMin, Height: t.BoundingBox.Height}
			overlap := t.BoundingBox.HorizontalOverlap(colBox)
			if overlap > bestOverlap {
				best = c
				bestOverlap = overlap
			}
		}
		if bestOverlap <= 0 {
			best = nearestColumn(columns, t.BoundingBox.CenterX())
		}
		columns[best].Tokens = append(columns[best].Tokens, i)
	}
}

func nearestColumn(columns []document.Column, x float64) int {
	best := 0
	bestDist := -1.0
	for c, col := range columns {
		center := float64(col.XMin+col.XMax) / 2
		dist := center - x
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}

// orderColumn sorts a column's tokens into line-then-word order: tokens
// whose vertical ranges overlap by more than the configured fraction share
// a line; lines run top to bottom and words left to right. Ties on both
// axes fall back to input (service-returned) order, keeping the sort
// stable and deterministic.
func (a *Analyzer) orderColumn(tokens []document.Token, col *document.Column) {
	idxs := col.Tokens
	sort.SliceStable(idxs, func(i, j int) bool {
		bi, bj := tokens[idxs[i]].BoundingBox, tokens[idxs[j]].BoundingBox
		if bi.Y != bj.Y {
			return bi.Y < bj.Y
		}
		if bi.X != bj.X {
			return bi.X < bj.X
		}
		return idxs[i] < idxs[j]
	})

	var lines [][]int
	var lineBox document.BoundingBox
	for _, idx := range idxs {
		box := tokens[idx].BoundingBox
		if len(lines) > 0 && a.sameLine(box, lineBox) {
			lines[len(lines)-1] = append(lines[len(lines)-1], idx)
			lineBox = lineBox.Union(box)
			continue
		}
		lines = append(lines, []int{idx})
		lineBox = box
	}

	ordered := make([]int, 0, len(idxs))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			bi, bj := tokens[line[i]].BoundingBox, tokens[line[j]].BoundingBox
			if bi.X != bj.X {
				return bi.X < bj.X
			}
			return line[i] < line[j]
		})
		ordered = append(ordered, line...)
	}
	col.Tokens = ordered
}

func (a *Analyzer) sameLine(box, lineBox document.BoundingBox) bool {
	overlap := box.VerticalOverlap(lineBox)
	smaller := min(box.Height, lineBox.Height)
	if smaller <= 0 {
		return overlap > 0
	}
	return float64(overlap) > a.cfg.LineOverlapRatio*float64(smaller)
}

// detectTable looks for a grid over the whole page: occupied bands on both
// axes separated by qualifying gaps (row bands are found exactly like
// column bands, rotated 90 degrees). A grid counts as a table only when it
// is at least MinTableRows x MinTableCols and the cell occupancy reaches
// TableFillRatio; sparse alignment is incidental, not tabular.
func (a *Analyzer) detectTable(tokens []document.Token) (document.TableRegion, bool) {
	colBands := a.gridBands(tokens, horizontalSpan, a.cfg.ColumnGapRatio*medianExtent(tokens, tokenWidth))
	rowBands := a.gridBands(tokens, verticalSpan, a.cfg.ColumnGapRatio*medianExtent(tokens, tokenHeight))

	if len(rowBands) < a.cfg.MinTableRows || len(colBands) < a.cfg.MinTableCols {
		return document.TableRegion{}, false
	}

	occupied := make(map[[2]int][]int)
	for i, t := range tokens {
		r := bandIndex(rowBands, t.BoundingBox.CenterY())
		c := bandIndex(colBands, t.BoundingBox.CenterX())
		occupied[[2]int{r, c}] = append(occupied[[2]int{r, c}], i)
	}

	fill := float64(len(occupied)) / float64(len(rowBands)*len(colBands))
	if fill < a.cfg.TableFillRatio {
		return document.TableRegion{}, false
	}

	bbox := tokens[0].BoundingBox
	for _, t := range tokens[1:] {
		bbox = bbox.Union(t.BoundingBox)
	}

	cells := make([]document.TableCell, 0, len(occupied))
	for key, idx := range occupied {
		cells = append(cells, document.TableCell{Row: key[0], Column: key[1], Tokens: idx})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Column < cells[j].Column
	})

	return document.TableRegion{
		BoundingBox: bbox,
		Rows:        len(rowBands),
		Columns:     len(colBands),
		Cells:       cells,
	}, true
}

// gridBands merges occupied spans on one axis and then joins adjacent
// bands whose separating gap does not qualify, yielding the candidate
// grid bands for that axis.
func (a *Analyzer) gridBands(tokens []document.Token, project func(document.Token) span, threshold float64) []span {
	bands := mergedSpans(tokens, project)

	grid := []span{bands[0]}
	for _, band := range bands[1:] {
		last := &grid[len(grid)-1]
		if float64(band.lo-last.hi) > threshold {
			grid = append(grid, band)
			continue
		}
		last.hi = band.hi
	}
	return grid
}

func bandIndex(bands []span, coord float64) int {
	best := 0
	bestDist := -1.0
	for i, b := range bands {
		if coord >= float64(b.lo) && coord <= float64(b.hi) {
			return i
		}
		center := float64(b.lo+b.hi) / 2
		dist := center - coord
		if dist < 0 {
			dist = -dist
		}
		if bestDist < 0 || dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best
}

func horizontalSpan(t document.Token) span {
	return span{lo: t.BoundingBox.X, hi: t.BoundingBox.Right()}
}

func verticalSpan(t document.Token) span {
	return span{lo: t.BoundingBox.Y, hi: t.BoundingBox.Bottom()}
}

func tokenWidth(t document.Token) int {
	return t.BoundingBox.Width
}

func tokenHeight(t document.Token) int {
	return t.BoundingBox.Height
}

// mergedSpans projects all tokens onto one axis and merges overlapping or
// touching intervals into maximal occupied bands, sorted ascending.
func mergedSpans(tokens []document.Token, project func(document.Token) span) []span {
	spans := make([]span, 0, len(tokens))
	for _, t := range tokens {
		spans = append(spans, project(t))
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].lo != spans[j].lo {
			return spans[i].lo < spans[j].lo
		}
		return spans[i].hi < spans[j].hi
	})

	merged := []span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.lo <= last.hi {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// medianExtent returns the median of a token dimension, used to scale the
// gap thresholds to the document's type size.
func medianExtent(tokens []document.Token, dim func(document.Token) int) float64 {
	values := make([]int, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, dim(t))
	}
	sort.Ints(values)

	n := len(values)
	if n%2 == 1 {
		return float64(values[n/2])
	}
	return float64(values[n/2-1]+values[n/2]) / 2
}
