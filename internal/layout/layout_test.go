package layout

import (
	"testing"

	"github.com/platinummonkey/docsift/internal/document"
)

// tok builds a token at the given geometry; text is only for debugging.
func tok(text string, x, y, w, h int) document.Token {
	return document.NewToken(text, document.NewBoundingBox(x, y, w, h), 0.9)
}

func page(tokens ...document.Token) document.Page {
	return document.Page{Width: 1000, Height: 1000, Tokens: tokens}
}

func assertPermutation(t *testing.T, order []int, n int) {
	t.Helper()
	if len(order) != n {
		t.Fatalf("reading order has %d entries, want %d", len(order), n)
	}
	seen := make(map[int]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			t.Fatalf("reading order contains out-of-range index %d", idx)
		}
		if seen[idx] {
			t.Fatalf("reading order contains index %d twice", idx)
		}
		seen[idx] = true
	}
}

func assertOrder(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("reading order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reading order = %v, want %v", got, want)
		}
	}
}

func TestAnalyze_EmptyPage(t *testing.T) {
	layout := New(DefaultConfig()).Analyze(page())

	if layout.ReadingOrder == nil || len(layout.ReadingOrder) != 0 {
		t.Errorf("empty page should yield empty reading order, got %v", layout.ReadingOrder)
	}
	if len(layout.Columns) != 0 {
		t.Errorf("empty page should yield no columns, got %d", len(layout.Columns))
	}
	if len(layout.Tables) != 0 {
		t.Errorf("empty page should yield no tables, got %d", len(layout.Tables))
	}
}

func TestAnalyze_SingleToken(t *testing.T) {
	layout := New(DefaultConfig()).Analyze(page(tok("only", 10, 10, 40, 10)))

	assertOrder(t, layout.ReadingOrder, []int{0})
	if len(layout.Columns) != 1 {
		t.Errorf("expected 1 column, got %d", len(layout.Columns))
	}
}

func TestAnalyze_SingleColumn_LineThenWordOrder(t *testing.T) {
	// Three lines of three words, fed in scrambled order. Word gaps (10px)
	// stay under the split threshold and line spacing (5px) stays under the
	// row threshold, so this is one column of plain text.
	p := page(
		tok("fox", 100, 0, 40, 10), // line 0, word 2
		tok("brown", 50, 0, 40, 10), // line 0, word 1
		tok("jumps", 0, 15, 40, 10), // line 1, word 0
		tok("the", 0, 0, 40, 10), // line 0, word 0
		tok("dog", 50, 30, 40, 10), // line 2, word 1
		tok("over", 50, 15, 40, 10), // line 1, word 1
		tok("lazy", 0, 30, 40, 10), // line 2, word 0
	)

	layout := New(DefaultConfig()).Analyze(p)

	assertPermutation(t, layout.ReadingOrder, len(p.Tokens))
	assertOrder(t, layout.ReadingOrder, []int{3, 1, 0, 2, 5, 6, 4})
	if len(layout.Columns) != 1 {
		t.Errorf("expected 1 column, got %d", len(layout.Columns))
	}
	if len(layout.Tables) != 0 {
		t.Errorf("plain text should not be reported as a table, got %d", len(layout.Tables))
	}
}

func TestAnalyze_TwoColumns_ReadingOrderPerColumn(t *testing.T) {
	// A and C in the left column, B and D in the right. The correct reading
	// order finishes the left column before starting the right one even
	// though B sits above C on the page.
	p := page(
		tok("A", 0, 0, 40, 10),
		tok("B", 200, 0, 40, 10),
		tok("C", 0, 25, 40, 10),
		tok("D", 200, 25, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(layout.Columns))
	}
	assertOrder(t, layout.ReadingOrder, []int{0, 2, 1, 3})

	if layout.Columns[0].XMax > layout.Columns[1].XMin {
		t.Error("columns should be reported left to right")
	}
}

func TestAnalyze_GapAtThresholdDoesNotSplit(t *testing.T) {
	// Median token width 40, so the split threshold is 60. A 60px gap is
	// not strictly greater and must not split the column.
	p := page(
		tok("A", 0, 0, 40, 10),
		tok("B", 100, 0, 40, 10),
		tok("C", 0, 25, 40, 10),
		tok("D", 100, 25, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Columns) != 1 {
		t.Fatalf("expected 1 column for an at-threshold gap, got %d", len(layout.Columns))
	}
	assertOrder(t, layout.ReadingOrder, []int{0, 1, 2, 3})
}

func TestAnalyze_GapNotStraddled_SingleColumn(t *testing.T) {
	// The left tokens sit at the top and the right tokens far below; the
	// x gap does not separate side-by-side streams, so no column split.
	p := page(
		tok("title", 0, 0, 40, 10),
		tok("word", 0, 15, 40, 10),
		tok("footer", 200, 500, 40, 10),
		tok("page", 200, 515, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Columns) != 1 {
		t.Errorf("expected 1 column when the gap is not straddled, got %d", len(layout.Columns))
	}
	assertPermutation(t, layout.ReadingOrder, len(p.Tokens))
}

func TestAnalyze_CustomColumnGapRatio(t *testing.T) {
	// The same two-column geometry stops splitting when the ratio is
	// raised past the gap width.
	p := page(
		tok("A", 0, 0, 40, 10),
		tok("B", 200, 0, 40, 10),
		tok("C", 0, 25, 40, 10),
		tok("D", 200, 25, 40, 10),
	)

	layout := New(Config{ColumnGapRatio: 5.0}).Analyze(p)

	if len(layout.Columns) != 1 {
		t.Errorf("expected 1 column with ratio 5.0, got %d", len(layout.Columns))
	}
}

func TestAnalyze_LineGrouping_OverlapBoundary(t *testing.T) {
	analyzer := New(DefaultConfig())

	// Exactly 50% vertical overlap: separate lines, ordered by Y.
	boundary := page(
		tok("second", 50, 5, 40, 10),
		tok("first", 0, 0, 40, 10),
	)
	layout := analyzer.Analyze(boundary)
	assertOrder(t, layout.ReadingOrder, []int{1, 0})

	// Just over 50% overlap: same line, ordered by X.
	overlapping := page(
		tok("right", 50, 4, 40, 10),
		tok("left", 0, 0, 40, 10),
	)
	layout = analyzer.Analyze(overlapping)
	assertOrder(t, layout.ReadingOrder, []int{1, 0})

	// Same geometry with the words swapped in x confirms the x sort.
	swapped := page(
		tok("left", 0, 4, 40, 10),
		tok("right", 50, 0, 40, 10),
	)
	layout = analyzer.Analyze(swapped)
	assertOrder(t, layout.ReadingOrder, []int{0, 1})
}

func TestAnalyze_DetectsGrid(t *testing.T) {
	// A fully occupied 3x3 grid. Column gaps (70px) exceed 1.5x the median
	// width (60) and row gaps (30px) exceed 1.5x the median height (15).
	var tokens []document.Token
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			tokens = append(tokens, tok("cell", col*110, row*40, 40, 10))
		}
	}

	layout := New(DefaultConfig()).Analyze(page(tokens...))

	if len(layout.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(layout.Tables))
	}
	table := layout.Tables[0]
	if table.Rows != 3 || table.Columns != 3 {
		t.Errorf("table = %dx%d, want 3x3", table.Rows, table.Columns)
	}
	if len(table.Cells) != 9 {
		t.Errorf("expected 9 occupied cells, got %d", len(table.Cells))
	}

	// Cells are reported row-major
	if table.Cells[0].Row != 0 || table.Cells[0].Column != 0 {
		t.Errorf("first cell = (%d,%d), want (0,0)", table.Cells[0].Row, table.Cells[0].Column)
	}
	last := table.Cells[len(table.Cells)-1]
	if last.Row != 2 || last.Column != 2 {
		t.Errorf("last cell = (%d,%d), want (2,2)", last.Row, last.Column)
	}

	want := document.BoundingBox{X: 0, Y: 0, Width: 260, Height: 90}
	if table.BoundingBox != want {
		t.Errorf("table bounding box = %+v, want %+v", table.BoundingBox, want)
	}
}

func TestAnalyze_DetectsTwoByTwoGrid(t *testing.T) {
	p := page(
		tok("a", 0, 0, 40, 10),
		tok("b", 110, 0, 40, 10),
		tok("c", 0, 40, 40, 10),
		tok("d", 110, 40, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(layout.Tables))
	}
	if layout.Tables[0].Rows != 2 || layout.Tables[0].Columns != 2 {
		t.Errorf("table = %dx%d, want 2x2", layout.Tables[0].Rows, layout.Tables[0].Columns)
	}
}

func TestAnalyze_SparseGridIsNotTable(t *testing.T) {
	// 5 of 9 cells occupied (0.56) stays below the 0.6 fill threshold.
	// Every row and column keeps at least one token so the band structure
	// is unchanged.
	p := page(
		tok("a", 0, 0, 40, 10),
		tok("b", 220, 0, 40, 10),
		tok("c", 110, 40, 40, 10),
		tok("d", 0, 80, 40, 10),
		tok("e", 220, 80, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Tables) != 0 {
		t.Errorf("sparse alignment should not be a table, got %d", len(layout.Tables))
	}
	assertPermutation(t, layout.ReadingOrder, len(p.Tokens))
}

func TestAnalyze_SingleRowIsNotTable(t *testing.T) {
	p := page(
		tok("a", 0, 0, 40, 10),
		tok("b", 110, 0, 40, 10),
		tok("c", 220, 0, 40, 10),
	)

	layout := New(DefaultConfig()).Analyze(p)

	if len(layout.Tables) != 0 {
		t.Errorf("a single row should not be a table, got %d", len(layout.Tables))
	}
}

func TestAnalyze_GridWithMissingCellStillTable(t *testing.T) {
	// 8 of 9 cells (0.89 fill) still clears the threshold.
	var tokens []document.Token
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if row == 1 && col == 1 {
				continue
			}
			tokens = append(tokens, tok("cell", col*110, row*40, 40, 10))
		}
	}

	layout := New(DefaultConfig()).Analyze(page(tokens...))

	if len(layout.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(layout.Tables))
	}
	if len(layout.Tables[0].Cells) != 8 {
		t.Errorf("expected 8 occupied cells, got %d", len(layout.Tables[0].Cells))
	}
}

func TestAnalyze_ReadingOrderIsAlwaysPermutation(t *testing.T) {
	analyzer := New(DefaultConfig())

	pages := map[string]document.Page{
		"identical boxes": page(
			tok("a", 10, 10, 40, 10),
			tok("b", 10, 10, 40, 10),
			tok("c", 10, 10, 40, 10),
		),
		"zero-size boxes": page(
			tok("a", 10, 10, 0, 0),
			tok("b", 20, 10, 0, 0),
		),
		"mixed sizes": page(
			tok("huge", 0, 0, 400, 60),
			tok("tiny", 500, 20, 10, 5),
			tok("mid", 600, 10, 80, 20),
		),
	}

	for name, p := range pages {
		t.Run(name, func(t *testing.T) {
			layout := analyzer.Analyze(p)
			assertPermutation(t, layout.ReadingOrder, len(p.Tokens))
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	analyzer := New(DefaultConfig())
	p := page(
		tok("A", 0, 0, 40, 10),
		tok("B", 200, 0, 40, 10),
		tok("C", 0, 25, 40, 10),
		tok("D", 200, 25, 40, 10),
	)

	first := analyzer.Analyze(p)
	for i := 0; i < 10; i++ {
		again := analyzer.Analyze(p)
		assertOrder(t, again.ReadingOrder, first.ReadingOrder)
	}
}
