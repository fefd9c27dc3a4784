// Package header finds the row that names the columns of a noisy worksheet.
//
// Corporate exports put logos, titles, blank separators and multi-row banners above the
// real header. The detector scores each of the first rows by how many of its cells look
// like column names from a fixed vocabulary, with the number of filled cells as a weak
// secondary signal. Rows too sparse to be a header are skipped outright.
package header

import (
	"fmt"
	"strings"
	"unicode"

	"sheetview/domain/sheet"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultSearchDepth = 100
	DefaultMinFilled   = 3
	KeywordWeight      = 2000
	DensityWeight      = 50

	// minReversePrefix is the shortest cell that may match as a prefix of a vocabulary token
	minReversePrefix = 3
)

// DefaultVocabulary holds expected column-name tokens, already case- and accent-folded
var DefaultVocabulary = []string{
	// es
	"codigo", "nombre", "referencia", "refer", "descripcion", "precio", "costo",
	"stock", "existencia", "cantidad", "tipo", "categoria", "inventario", "impuesto", "impues",
	"iva", "estado", "unidad", "medida", "marca", "modelo", "valor", "total",
	// en
	"code", "name", "reference", "description", "price", "cost", "quantity", "qty", "type",
	"category", "inventory", "tax", "status", "unit", "brand", "model", "value", "sku", "ean",
}

// Options tunes the detector
type Options struct {
	SearchDepth int
	MinFilled   int
	Vocabulary  []string
	// Logf receives diagnostic lines; nil discards them
	Logf func(format string, args ...interface{})
}

// DefaultOptions returns the detector defaults
func DefaultOptions() Options {
	return Options{
		SearchDepth: DefaultSearchDepth,
		MinFilled:   DefaultMinFilled,
		Vocabulary:  DefaultVocabulary,
	}
}

// RowScore is the evaluation of one candidate row
type RowScore struct {
	Index  int
	Hits   int
	Filled int
	Score  int
	Sample []string
}

// Result is the detector's decision
type Result struct {
	Index      int
	Score      int
	Confidence float64
	Candidates []RowScore
}

// Detector scores header-row candidates. It keeps no state between calls.
type Detector struct {
	opts  Options
	vocab map[string]struct{}
	list  []string
}

// NewDetector creates a detector, filling zero-valued options with defaults
func NewDetector(opts Options) *Detector {
	if opts.SearchDepth <= 0 {
		opts.SearchDepth = DefaultSearchDepth
	}
	if opts.MinFilled <= 0 {
		opts.MinFilled = DefaultMinFilled
	}
	if len(opts.Vocabulary) == 0 {
		opts.Vocabulary = DefaultVocabulary
	}

	d := &Detector{opts: opts, vocab: make(map[string]struct{}, len(opts.Vocabulary))}
	fold := newFolder()
	for _, token := range opts.Vocabulary {
		token = fold(token)
		if token == "" {
			continue
		}
		if _, dup := d.vocab[token]; dup {
			continue
		}
		d.vocab[token] = struct{}{}
		d.list = append(d.list, token)
	}
	return d
}

// Detect returns the best header row index. It never fails; with no usable row it returns 0.
func (d *Detector) Detect(m sheet.Matrix) Result {
	fold := newFolder()
	depth := len(m)
	if depth > d.opts.SearchDepth {
		depth = d.opts.SearchDepth
	}
	d.logf("Analyzing worksheet, rows: %d, search depth: %d", len(m), depth)

	var best *RowScore
	candidates := make([]RowScore, 0, depth)
	for i := 0; i < depth; i++ {
		filled := filledCells(m[i], fold)
		if len(filled) < d.opts.MinFilled {
			continue
		}

		hits := 0
		for _, cell := range filled {
			if d.isKeyword(cell) {
				hits++
			}
		}

		rs := RowScore{
			Index:  i,
			Hits:   hits,
			Filled: len(filled),
			Score:  hits*KeywordWeight + len(filled)*DensityWeight,
			Sample: sample(filled, 4),
		}
		candidates = append(candidates, rs)

		if hits > 0 || len(filled) > 5 {
			d.logf("Row %d analysis: hits=%d, cols=%d, score=%d | Sample: [%s]",
				i, rs.Hits, rs.Filled, rs.Score, strings.Join(rs.Sample, ", "))
		}

		// ties go to the deeper row
		if rs.Score > 0 && (best == nil || rs.Score >= best.Score) {
			chosen := candidates[len(candidates)-1]
			best = &chosen
		}
	}

	result := Result{Candidates: candidates}
	if best != nil {
		result.Index = best.Index
		result.Score = best.Score
		result.Confidence = float64(best.Hits) / float64(best.Filled)
	}
	d.logf("Final decision: row %d (score %d, confidence %.2f)", result.Index, result.Score, result.Confidence)
	return result
}

// isKeyword matches exact tokens, cells starting with a token ("precio unitario"),
// and cells that abbreviate a token ("cant" for "cantidad").
func (d *Detector) isKeyword(cell string) bool {
	if _, ok := d.vocab[cell]; ok {
		return true
	}
	for _, token := range d.list {
		if strings.HasPrefix(cell, token) {
			return true
		}
		if len([]rune(cell)) >= minReversePrefix && strings.HasPrefix(token, cell) {
			return true
		}
	}
	return false
}

func (d *Detector) logf(format string, args ...interface{}) {
	if d.opts.Logf != nil {
		d.opts.Logf(format, args...)
	}
}

// Detect runs a detector with default options
func Detect(m sheet.Matrix) Result {
	return NewDetector(DefaultOptions()).Detect(m)
}

func filledCells(row sheet.Row, fold func(string) string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		s := fold(c.String())
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sample(cells []string, n int) []string {
	if len(cells) < n {
		n = len(cells)
	}
	return append([]string(nil), cells[:n]...)
}

// newFolder returns a trim + lower-case + accent-stripping function.
// Transformers carry state, so each Detect call builds its own.
func newFolder() func(string) string {
	lower := cases.Lower(language.Und)
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	return func(s string) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return ""
		}
		folded, _, err := transform.String(strip, lower.String(s))
		if err != nil {
			return strings.ToLower(s)
		}
		return folded
	}
}

// String renders a result for diagnostics
func (r Result) String() string {
	return fmt.Sprintf("header row %d (score %d, confidence %.2f, %d candidates)",
		r.Index, r.Score, r.Confidence, len(r.Candidates))
}
