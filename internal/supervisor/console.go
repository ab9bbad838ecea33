package supervisor

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// Console is the optional foreground operator line-editing console (§9
// "Operator console"): `dump`, `reload`, and `quit` without signals.
// Grounded on minimega's interactive CLI loop, trimmed to the three verbs
// this substrate's core exposes.
type Console struct {
	Dump   func() []string
	Reload func() error
	Quit   func()
}

// Run reads commands from the console until EOF or `quit`. It blocks the
// calling goroutine, so callers typically launch it only when
// --on-init-fork was not requested (a foreground console and a
// backgrounding fork are mutually exclusive).
func (c *Console) Run(out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		cmd, err := line.Prompt("mds> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("supervisor: console: %w", err)
		}
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		line.AppendHistory(cmd)

		switch cmd {
		case "dump":
			for _, l := range c.Dump() {
				fmt.Fprintln(out, l)
			}
		case "reload":
			if err := c.Reload(); err != nil {
				fmt.Fprintf(out, "reload failed: %v\n", err)
			}
		case "quit":
			c.Quit()
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q (expected dump, reload, quit)\n", cmd)
		}
	}
}
