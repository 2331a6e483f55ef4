package output

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"

	"github.com/mikey-austin/shoko_nav/internal/ports"
	"github.com/mikey-austin/shoko_nav/pkg/nav"
)

// Terminal renders screens and plays the host role for a local CLI
// session. Notices go to Err so Out stays machine readable.
type Terminal struct {
	Printer     Printer
	Err         io.Writer
	Interactive bool
	// Notifier, when set, also receives notices (e.g. a Kodi GUI).
	Notifier interface {
		Notify(ctx context.Context, msg nav.Message) error
	}

	// Hints applied after the last render.
	SelectedIndex int
	AppliedSort   string
	Scripts       []string
}

var (
	_ ports.Renderer = (*Terminal)(nil)
	_ ports.Host     = (*Terminal)(nil)
	_ ports.Prompter = (*Terminal)(nil)
)

// NewTerminal returns a terminal that prints with p.
func NewTerminal(p Printer, interactive bool) *Terminal {
	return &Terminal{Printer: p, Err: os.Stderr, Interactive: interactive, SelectedIndex: -1}
}

func (t *Terminal) errOut() io.Writer {
	if t.Err == nil {
		return os.Stderr
	}
	return t.Err
}

func (t *Terminal) Render(ctx context.Context, screen nav.Screen) error {
	if t.Printer == nil {
		return nil
	}
	return t.Printer.Print(screen)
}

func (t *Terminal) RunScript(ctx context.Context, action string) error {
	t.Scripts = append(t.Scripts, action)
	_, err := fmt.Fprintln(t.errOut(), pterm.Info.Sprint("host action: "+action))
	return err
}

func (t *Terminal) MoveToIndex(ctx context.Context, index int) error {
	t.SelectedIndex = index
	return nil
}

func (t *Terminal) ApplySort(ctx context.Context, method string) error {
	t.AppliedSort = method
	return nil
}

func (t *Terminal) ShowInformation(ctx context.Context, title string, text string) error {
	_, err := fmt.Fprintf(t.errOut(), "%s\n%s\n", pterm.DefaultSection.Sprint(title), text)
	return err
}

func (t *Terminal) Notify(ctx context.Context, msg nav.Message) error {
	if _, err := fmt.Fprintln(t.errOut(), formatMessage(msg)); err != nil {
		return err
	}
	if t.Notifier != nil {
		return t.Notifier.Notify(ctx, msg)
	}
	return nil
}

// ChooseFile asks which file to play. Without a terminal the first
// choice is taken.
func (t *Terminal) ChooseFile(ctx context.Context, choices []ports.FileChoice) (int, bool, error) {
	if len(choices) == 0 {
		return 0, false, nil
	}
	if !t.Interactive {
		return choices[0].ID, true, nil
	}
	labels := make([]string, 0, len(choices))
	byLabel := make(map[string]int, len(choices))
	for idx, c := range choices {
		label := fmt.Sprintf("%d. %s", idx+1, c.Label)
		labels = append(labels, label)
		byLabel[label] = c.ID
	}
	picked, err := pterm.DefaultInteractiveSelect.
		WithOptions(labels).
		WithDefaultText("Select file").
		Show()
	if err != nil {
		return 0, false, err
	}
	id, ok := byLabel[picked]
	return id, ok, nil
}
