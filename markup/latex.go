// Package markup turns plain or Markdown-flavoured prose into a LaTeX fragment.
package markup

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	latexCommandRe = regexp.MustCompile(`\\[a-zA-Z]+|\\\[|\$[^$\n]+\$`)
	blankRunRe     = regexp.MustCompile(`\n{3,}`)
	trailingWSRe   = regexp.MustCompile(`[ \t]+\n`)
)

var escaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Escape makes s safe to place in running LaTeX text.
func Escape(s string) string { return escaper.Replace(s) }

// HasMarkup reports whether s already contains LaTeX commands or math.
func HasMarkup(s string) bool { return latexCommandRe.MatchString(s) }

// Prepare returns s unchanged when it already carries LaTeX markup and the converted
// fragment otherwise. Conversion errors fall back to escaped text.
func Prepare(s string) string {
	if strings.TrimSpace(s) == "" || HasMarkup(s) {
		return s
	}
	out, err := ToLaTeX(s)
	if err != nil {
		return Escape(s)
	}
	return out
}

// ToLaTeX parses src as Markdown with goldmark and renders the tree as LaTeX:
// emphasis to \textit, strong to \textbf, lists to itemize/enumerate, code to
// \texttt/verbatim, links to \href, headings to starred sub-headings.
func ToLaTeX(src string) (string, error) {
	source := []byte(src)
	root := goldmark.New().Parser().Parse(text.NewReader(source))
	if root == nil {
		return "", errors.New("markup: goldmark returned no document")
	}

	var buf bytes.Buffer
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		return render(&buf, source, n, entering)
	})
	if err != nil {
		return "", fmt.Errorf("markup: render: %w", err)
	}
	return normalize(buf.String()), nil
}

func render(buf *bytes.Buffer, src []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document:
	case *ast.Paragraph:
		if !entering {
			buf.WriteString("\n\n")
		}
	case *ast.TextBlock:
		if !entering && node.NextSibling() != nil {
			buf.WriteString("\n")
		}
	case *ast.Heading:
		if entering {
			buf.WriteString(headingCommand(node.Level))
			buf.WriteString("{")
		} else {
			buf.WriteString("}\n\n")
		}
	case *ast.Emphasis:
		if entering {
			if node.Level >= 2 {
				buf.WriteString(`\textbf{`)
			} else {
				buf.WriteString(`\textit{`)
			}
		} else {
			buf.WriteString("}")
		}
	case *ast.CodeSpan:
		if entering {
			buf.WriteString(`\texttt{`)
		} else {
			buf.WriteString("}")
		}
	case *ast.Text:
		if !entering {
			return ast.WalkContinue, nil
		}
		buf.WriteString(Escape(string(node.Segment.Value(src))))
		switch {
		case node.HardLineBreak():
			buf.WriteString("\\\\\n")
		case node.SoftLineBreak():
			buf.WriteString("\n")
		}
	case *ast.String:
		if entering {
			buf.WriteString(Escape(string(node.Value)))
		}
	case *ast.List:
		env := "itemize"
		if node.IsOrdered() {
			env = "enumerate"
		}
		if entering {
			fmt.Fprintf(buf, "\\begin{%s}\n", env)
		} else {
			fmt.Fprintf(buf, "\\end{%s}\n\n", env)
		}
	case *ast.ListItem:
		if entering {
			buf.WriteString(`\item `)
		} else if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
			buf.WriteString("\n")
		}
	case *ast.Blockquote:
		if entering {
			buf.WriteString("\\begin{quote}\n")
		} else {
			buf.WriteString("\\end{quote}\n\n")
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			buf.WriteString("\\begin{verbatim}\n")
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			buf.WriteString("\\end{verbatim}\n\n")
		}
		return ast.WalkSkipChildren, nil
	case *ast.Link:
		if entering {
			fmt.Fprintf(buf, `\href{%s}{`, string(node.Destination))
		} else {
			buf.WriteString("}")
		}
	case *ast.AutoLink:
		if entering {
			fmt.Fprintf(buf, `\url{%s}`, string(node.URL(src)))
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		if entering {
			fmt.Fprintf(buf, `\includegraphics[width=\linewidth]{%s}`, string(node.Destination))
		}
		return ast.WalkSkipChildren, nil
	case *ast.ThematicBreak:
		if entering {
			buf.WriteString("\\noindent\\rule{\\linewidth}{0.4pt}\n\n")
		}
	case *ast.RawHTML, *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func headingCommand(level int) string {
	switch level {
	case 1:
		return `\subsection*`
	case 2:
		return `\subsubsection*`
	default:
		return `\paragraph*`
	}
}

func normalize(s string) string {
	s = trailingWSRe.ReplaceAllString(s, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
