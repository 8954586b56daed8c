package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"bcfreq/internal/bcfreq/config"
	"bcfreq/internal/bcfreq/log"
	"bcfreq/internal/bcfreq/styles"
	"bcfreq/internal/freq"
	"bcfreq/internal/store"
	"bcfreq/internal/ui/colorize"
)

// app holds the settings resolved for one command invocation.
type app struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "bcfreq [file]",
		Short: "Bytecode instruction frequency counter",
		Long: `bcfreq decodes a compiled bytecode image and reports how often each
distinct instruction occurs, most frequent first.`,
		Example: `
# Print the frequency report
bcfreq -n program.bc

# Emit the report as JSON and record it in a history database
bcfreq --format json --db scans.db program.bc

# Decrypt an XXTEA-wrapped image first
bcfreq --key s3cret --signature SIG program.bc
  `,
		Args:              cobra.ExactArgs(1),
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE:              a.runScan,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default $HOME/.bcfreq.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("key", "", "XXTEA key for encrypted images")
	rootCmd.PersistentFlags().String("signature", "", "Signature prefix stripped before decryption")
	rootCmd.PersistentFlags().String("db", "", "SQLite database recording scan history")

	rootCmd.Flags().StringP("format", "o", freq.FormatText, "Report format: text, json, cbor, markdown")
	rootCmd.Flags().BoolP("no-tui", "n", false, "Print the report without the TUI")
	rootCmd.Flags().String("cpuprofile", "", "Write CPU profile to file")
	rootCmd.Flags().String("memprofile", "", "Write memory profile to file")

	rootCmd.AddCommand(newDumpCmd(a), newSymbolsCmd(a), newHistoryCmd(a), newSchemaCmd())
	return rootCmd
}

// setup resolves configuration for every command.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("config")
	v, err := config.New(file)
	if err != nil {
		return err
	}
	if err := config.Bind(v, cmd.Flags()); err != nil {
		return err
	}
	if a.cfg, err = config.Load(v); err != nil {
		return err
	}

	log.Setup(a.cfg.LogLevel, a.cfg.Debug)
	if a.cfg.NoColor {
		color.NoColor = true
	}
	slog.Debug("Configuration resolved", "config", v.ConfigFileUsed(), "format", a.cfg.Format, "db", a.cfg.DB)
	return nil
}

func (a *app) runScan(cmd *cobra.Command, args []string) error {
	stop, err := startProfiles(cmd)
	if err != nil {
		return err
	}
	defer stop()

	path := args[0]
	img, err := openImage(path, a.cfg)
	if err != nil {
		return err
	}
	defer img.Close()

	report, err := freq.Scan(img)
	if err != nil {
		return err
	}
	slog.Debug("Scan complete", "file", path, "total", report.Total, "distinct", report.Distinct())

	if a.cfg.DB != "" {
		if err := a.record(cmd.Context(), path, report); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if a.cfg.NoTUI || a.cfg.Format != freq.FormatText || !isTerminal(out) {
		return writeReport(out, report, a.cfg.Format, isTerminal(out))
	}

	program := tea.NewProgram(
		newModel(path, img, report),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := program.Run(); err != nil {
		slog.Error("TUI run error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// record saves report into the history database.
func (a *app) record(ctx context.Context, path string, report *freq.Report) error {
	digest, err := fileDigest(path)
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}
	s, err := store.Open(ctx, a.cfg.DB)
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Record(ctx, path, digest, time.Now(), report)
	if err != nil {
		return err
	}
	slog.Info("Recorded scan", "id", id, "db", a.cfg.DB)
	return nil
}

// writeReport prints report in format. Text is highlighted and markdown is
// rendered when out is a terminal.
func writeReport(out io.Writer, report *freq.Report, format string, tty bool) error {
	switch {
	case format == freq.FormatMarkdown && tty:
		rendered, err := styles.Render(report.Markdown(), terminalWidth(out))
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	case (format == freq.FormatText || format == "") && colorize.Enabled():
		for _, e := range report.Entries {
			if _, err := fmt.Fprintln(out, colorize.Line(fmt.Sprintf("%d x %s", e.Count, e.Text))); err != nil {
				return err
			}
		}
		return nil
	}
	return report.Encode(out, format)
}

// startProfiles starts CPU profiling and arranges a heap profile when the
// corresponding flags are set. The returned func stops both.
func startProfiles(cmd *cobra.Command) (func(), error) {
	var stops []func()

	cpuprofile, _ := cmd.Flags().GetString("cpuprofile")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return nil, fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("could not start CPU profile: %w", err)
		}
		stops = append(stops, func() {
			pprof.StopCPUProfile()
			f.Close()
		})
	}

	memprofile, _ := cmd.Flags().GetString("memprofile")
	if memprofile != "" {
		stops = append(stops, func() {
			f, err := os.Create(memprofile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not create memory profile: %v\n", err)
				return
			}
			defer f.Close()
			if err := pprof.WriteHeapProfile(f); err != nil {
				fmt.Fprintf(os.Stderr, "could not write memory profile: %v\n", err)
			}
		})
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(f.Fd()); err == nil && width > 0 {
			return width
		}
	}
	return 80
}

// printError reports err on stderr, naming its decode error kind if any.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	if kind := freq.Kind(err); kind != "" {
		fmt.Fprintf(os.Stderr, "%s %s: %v\n", red("error"), kind, err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", red("error"), err)
}

func Execute() {
	rootCmd := newRootCmd()

	// Bypass fang's styled output when printing plain reports or piping.
	plain := false
	for _, arg := range os.Args[1:] {
		if arg == "--no-tui" || arg == "-n" {
			plain = true
			break
		}
	}
	if !plain && !term.IsTerminal(os.Stdout.Fd()) {
		plain = true
	}

	var err error
	if plain {
		rootCmd.SilenceErrors = true
		if err = rootCmd.Execute(); err != nil {
			printError(err)
		}
	} else {
		err = fang.Execute(
			context.Background(),
			rootCmd,
			fang.WithNotifySignal(os.Interrupt),
		)
	}
	log.Close()
	if err != nil {
		os.Exit(freq.ExitCode(err))
	}
}
