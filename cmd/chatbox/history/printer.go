package historycmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/papercomputeco/chatbox/pkg/chat"
)

const defaultWidth = 80

var labelColors = map[chat.Role]string{
	chat.RoleUser:      "#2563EB",
	chat.RoleAssistant: "#16A34A",
}

// printer writes messages as "You"/"AI" blocks. Markdown goes through glamour
// only when the output is a terminal.
type printer struct {
	w        io.Writer
	out      *termenv.Output
	renderer *glamour.TermRenderer
	width    int
	oneline  bool
}

func newPrinter(w io.Writer, theme chat.Theme, raw, oneline bool) (*printer, error) {
	width := defaultWidth
	tty := false
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}

	p := &printer{
		w:       w,
		out:     termenv.NewOutput(w),
		width:   width,
		oneline: oneline,
	}

	if tty && !raw && !oneline {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(string(theme)),
			glamour.WithWordWrap(width-4),
		)
		if err != nil {
			return nil, fmt.Errorf("could not create markdown renderer: %w", err)
		}
		p.renderer = r
	}

	return p, nil
}

func label(role chat.Role) string {
	if role == chat.RoleUser {
		return "You"
	}
	return "AI"
}

func (p *printer) header(m chat.Message) string {
	name := p.out.String(label(m.Role)).Bold().Foreground(p.out.Color(labelColors[m.Role])).String()
	ts := p.out.String(m.CreatedAt.Local().Format("3:04 PM")).Faint().String()
	return name + " " + ts
}

func (p *printer) print(m chat.Message) {
	if p.oneline {
		line := p.header(m) + "  " + strings.Join(strings.Fields(m.Content), " ")
		fmt.Fprintln(p.w, ansi.Truncate(line, p.width, "…"))
		return
	}

	body := m.Content
	if p.renderer != nil {
		if rendered, err := p.renderer.Render(body); err == nil {
			body = strings.Trim(rendered, "\n")
		}
	}
	fmt.Fprintf(p.w, "%s\n%s\n\n", p.header(m), body)
}

func (p *printer) notice(text string) {
	fmt.Fprintln(p.w, p.out.String("── "+text+" ──").Faint().String())
}
