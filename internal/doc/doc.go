// Package doc groups comment tokens into blocks, recognises doc-group
// commands, and attaches doc blocks to declarations by token position.
package doc

import (
	"regexp"
	"strings"

	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/model"
)

// DefaultGap is the number of blank lines allowed between comments of one block.
const DefaultGap = 1

// Options controls block grouping.
type Options struct {
	// Gap is the maximum number of blank lines between two comments of the
	// same block. Negative means DefaultGap.
	Gap int
}

// Block is one comment block with the token range it was built from.
type Block struct {
	model.DocComment
	First, Last int
}

var (
	groupCmdRe = regexp.MustCompile(`[\\@](?:(defgroup|addtogroup|ingroup|weakgroup)\b[ \t]*([^\n]*)|([{}]))`)
	markerRe   = regexp.MustCompile(`[\\@]([{}])`)
)

// Collect returns every comment block in source order, plain comments
// included.
func Collect(toks []lex.Token, opts Options) []Block {
	gap := opts.Gap
	if gap < 0 {
		gap = DefaultGap
	}
	var blocks []Block
	for i := 0; i < len(toks); i++ {
		if toks[i].Kind != lex.Comment {
			continue
		}
		trailing := isTrailing(toks, i)
		isDoc := isDocComment(toks[i].Text)
		j := i
		for j+1 < len(toks) && toks[j+1].Kind == lex.Comment {
			next := toks[j+1]
			if toks[j+1].Pos.Line-toks[j].EndLine-1 > gap {
				break
			}
			if trailing {
				// Only continued member-after comments extend a trailing block.
				if !hasAfterMarker(next.Text) || next.Pos.Line != toks[j].EndLine+1 {
					break
				}
			} else if hasAfterMarker(next.Text) || isDocComment(next.Text) != isDoc {
				break
			}
			j++
		}
		blocks = append(blocks, newBlock(toks, i, j, isDoc, trailing))
		i = j
	}
	return blocks
}

func isTrailing(toks []lex.Token, i int) bool {
	if hasAfterMarker(toks[i].Text) {
		return true
	}
	if i == 0 {
		return false
	}
	prev := toks[i-1]
	return prev.Kind != lex.Comment && prev.EndLine == toks[i].Pos.Line
}

func hasAfterMarker(text string) bool {
	for _, p := range []string{"///<", "//!<", "/**<", "/*!<"} {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func isDocComment(text string) bool {
	switch {
	case strings.HasPrefix(text, "////"), strings.HasPrefix(text, "/***"), text == "/**/":
	case strings.HasPrefix(text, "///"), strings.HasPrefix(text, "//!"),
		strings.HasPrefix(text, "/**"), strings.HasPrefix(text, "/*!"):
		return true
	}
	return strings.Contains(text, `\defgroup`) || strings.Contains(text, "@defgroup")
}

func newBlock(toks []lex.Token, first, last int, isDoc, trailing bool) Block {
	raw := make([]string, 0, last-first+1)
	var text []string
	for k := first; k <= last; k++ {
		raw = append(raw, toks[k].Text)
		text = append(text, stripMarkers(toks[k].Text)...)
	}
	b := Block{
		DocComment: model.DocComment{
			Raw:      strings.Join(raw, "\n"),
			Text:     strings.TrimSpace(strings.Join(text, "\n")),
			Pos:      toks[first].Pos,
			EndLine:  toks[last].EndLine,
			IsDoc:    isDoc,
			Trailing: trailing,
		},
		First: first,
		Last:  last,
	}
	if isDoc {
		parseGroupCommands(&b.DocComment)
	}
	return b
}

// stripMarkers removes comment delimiters and leading '*' decoration.
func stripMarkers(text string) []string {
	if strings.HasPrefix(text, "//") {
		text = strings.TrimPrefix(text, "//")
		text = strings.TrimLeft(text, "/!")
		text = strings.TrimPrefix(text, "<")
		return []string{trimOneSpace(text)}
	}
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")
	text = strings.TrimLeft(text, "*!")
	text = strings.TrimPrefix(text, "<")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		l = strings.TrimLeft(l, " \t")
		if i > 0 && strings.HasPrefix(l, "*") {
			l = l[1:]
		}
		lines[i] = strings.TrimRight(trimOneSpace(l), " \t\r")
	}
	return lines
}

func trimOneSpace(s string) string {
	return strings.TrimPrefix(s, " ")
}

// parseGroupCommands records the group commands of d in source order and
// strips them from its text. Markers on a \defgroup line follow the define.
func parseGroupCommands(d *model.DocComment) {
	for _, m := range groupCmdRe.FindAllStringSubmatch(d.Text, -1) {
		if m[3] != "" {
			d.Groups = append(d.Groups, marker(m[3]))
			continue
		}
		markers := markerRe.FindAllStringSubmatch(m[2], -1)
		args := strings.TrimSpace(markerRe.ReplaceAllString(m[2], ""))
		switch m[1] {
		case "ingroup":
			d.InGroups = append(d.InGroups, strings.Fields(args)...)
		default:
			name, title, _ := strings.Cut(args, " ")
			d.Groups = append(d.Groups, model.GroupCommand{
				Op:    model.DefineGroup,
				Name:  name,
				Title: strings.Trim(strings.TrimSpace(title), `"`),
			})
		}
		for _, mk := range markers {
			d.Groups = append(d.Groups, marker(mk[1]))
		}
	}
	d.Text = strings.TrimSpace(groupCmdRe.ReplaceAllString(d.Text, ""))
	d.GroupOnly = len(d.Groups) > 0 && len(d.InGroups) == 0 && d.Text == ""
}

func marker(brace string) model.GroupCommand {
	if brace == "{" {
		return model.GroupCommand{Op: model.OpenGroup}
	}
	return model.GroupCommand{Op: model.CloseGroup}
}
