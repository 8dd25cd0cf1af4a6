package doc

import (
	"sort"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/model"
)

// accessWords may sit between a doc block and the declaration it documents.
var accessWords = map[string]bool{
	"public": true, "protected": true, "private": true,
	"signals": true, "slots": true, "Q_SIGNALS": true, "Q_SLOTS": true,
}

// Index maps declaration token boundaries to the doc blocks that document
// them. Each block is handed out at most once.
type Index struct {
	leading  map[int][]int
	trailing map[int][]int
	blocks   []Block
	used     []bool
	log      []int
}

// NewIndex computes, for every doc block, the token index it attaches to.
func NewIndex(toks []lex.Token, blocks []Block) *Index {
	ix := &Index{
		leading:  make(map[int][]int),
		trailing: make(map[int][]int),
		blocks:   blocks,
		used:     make([]bool, len(blocks)),
	}
	for bi, b := range blocks {
		if !b.IsDoc || b.GroupOnly {
			continue
		}
		if b.Trailing {
			if k := prevCode(toks, b.First); k >= 0 {
				ix.trailing[k] = append(ix.trailing[k], bi)
			}
			continue
		}
		if k := nextDeclStart(toks, b.Last+1); k >= 0 {
			ix.leading[k] = append(ix.leading[k], bi)
		}
	}
	return ix
}

func prevCode(toks []lex.Token, i int) int {
	for k := i - 1; k >= 0; k-- {
		if toks[k].Kind != lex.Comment {
			return k
		}
	}
	return -1
}

// nextDeclStart returns the first code token at or after i, stepping over
// access-specifier labels such as "public:" or "public slots:".
func nextDeclStart(toks []lex.Token, i int) int {
	for i < len(toks) {
		t := toks[i]
		switch {
		case t.Kind == lex.Comment:
			i++
		case t.Kind == lex.EOF:
			return -1
		case t.Kind == lex.Ident && accessWords[t.Text]:
			k := i + 1
			if k < len(toks) && toks[k].Kind == lex.Ident && accessWords[toks[k].Text] {
				k++
			}
			if k < len(toks) && toks[k].Is(":") {
				i = k + 1
				continue
			}
			return i
		default:
			return i
		}
	}
	return -1
}

// Attach returns the doc blocks for the declaration spanning tokens
// first..last, in source order, and marks them used.
func (ix *Index) Attach(first, last int) []model.DocComment {
	var picked []int
	for _, bi := range ix.leading[first] {
		if !ix.used[bi] {
			picked = append(picked, bi)
		}
	}
	for _, bi := range ix.trailing[last] {
		if !ix.used[bi] {
			picked = append(picked, bi)
		}
	}
	if len(picked) == 0 {
		return nil
	}
	sort.Ints(picked)
	out := make([]model.DocComment, len(picked))
	for i, bi := range picked {
		ix.used[bi] = true
		ix.log = append(ix.log, bi)
		out[i] = ix.blocks[bi].DocComment
	}
	return out
}

// Mark returns a checkpoint for Release.
func (ix *Index) Mark() int { return len(ix.log) }

// Release makes the blocks handed out since m available again. The parser
// uses it when it backtracks over a speculative declaration.
func (ix *Index) Release(m int) {
	for _, bi := range ix.log[m:] {
		ix.used[bi] = false
	}
	ix.log = ix.log[:m]
}
