package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rootline-labs/rootline/internal/index"
	"github.com/rootline-labs/rootline/internal/tableref"
	"github.com/rootline-labs/rootline/internal/trace"
	"github.com/spf13/cobra"
)

// replSession carries the state the interactive trace session mutates.
type replSession struct {
	idx    *index.Index
	tracer *trace.Tracer
}

func runTraceREPL(cmd *cobra.Command, cmdCtx *CommandContext, idx *index.Index, tracer *trace.Tracer) error {
	// Setup history file (project-local, next to the catalog)
	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "trace_history")

	completer := newTraceCompleter(idx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rootline> ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize interactive session: %w", err)
	}
	defer func() { _ = rl.Close() }()

	session := &replSession{idx: idx, tracer: tracer}

	// Print welcome message
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rootline trace session (catalog: %s)\n", cmdCtx.Cfg.StatePath)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d target tables indexed. Type .help for commands, .quit to exit\n", len(idx.Tables()))
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	// REPL loop
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Handle dot-commands
		if strings.HasPrefix(line, ".") {
			if handled := handleTraceDotCommand(cmd.OutOrStdout(), cmd.ErrOrStderr(), session, line); handled {
				if isQuitCommand(line) {
					break
				}
				continue
			}
		}

		// Anything else is a table name to trace
		rec, err := session.tracer.Trace(line)
		if err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
			continue
		}
		traceRecordText(cmdCtx.Renderer, rec)
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// isQuitCommand reports whether the dot-command line exits the session.
func isQuitCommand(line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true
	}
	return false
}

func handleTraceDotCommand(out, errOut io.Writer, session *replSession, line string) bool {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printTraceREPLHelp(out)
		return true

	case ".tables":
		prefix := ""
		if len(parts) > 1 {
			prefix = parts[1]
		}
		listIndexedTables(out, session.idx, prefix)
		return true

	case ".depth":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(out, "Max depth: %d\n", sessionDepth(session.tracer))
			return true
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			_, _ = fmt.Fprintln(errOut, "Usage: .depth <n> (n >= 1)")
			return true
		}
		session.tracer.MaxDepth = n
		_, _ = fmt.Fprintf(out, "Max depth set to %d\n", n)
		return true

	case ".clear":
		fmt.Print("\033[H\033[2J")
		return true

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", command)
		return true
	}
}

// sessionDepth resolves the depth the tracer will actually use.
func sessionDepth(t *trace.Tracer) int {
	if t.MaxDepth > 0 {
		return t.MaxDepth
	}
	return trace.DefaultMaxDepth
}

func listIndexedTables(out io.Writer, idx *index.Index, prefix string) {
	tables := idx.Tables()
	count := 0
	for _, name := range tables {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		_, _ = fmt.Fprintln(out, name)
		count++
	}
	_, _ = fmt.Fprintf(out, "(%d tables)\n", count)
}

func printTraceREPLHelp(w io.Writer) {
	help := `
Commands:
  .help             Show this help message
  .tables [prefix]  List indexed target tables, optionally filtered
  .depth [n]        Show or set the maximum trace depth
  .clear            Clear the screen
  .quit / .exit     Exit the session

Tips:
  - Enter a table name (db.table or bare) to trace it
  - Use arrow keys to navigate history
  - Tab completion works for indexed table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTraceCompleter creates a readline completer for indexed table names.
func newTraceCompleter(idx *index.Index) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, name := range idx.Tables() {
		items = append(items, readline.PcItem(name))

		// Also complete the bare table part of db.table keys.
		if ref, err := tableref.Parse(name); err == nil && ref.Database != "" {
			items = append(items, readline.PcItem(ref.Table))
		}
	}

	// Add dot-commands
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".depth"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)

	return readline.NewPrefixCompleter(items...)
}
