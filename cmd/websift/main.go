package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"websift/internal/adapter/artifact"
	"websift/internal/adapter/mcpserver"
	"websift/internal/domain"
	"websift/internal/infra/logger"
	"websift/internal/usecase/search"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errReported marks failures already printed to the user.
var errReported = errors.New("reported")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "websift: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "websift",
		Short:         "Headless-browser web search that extracts text, code and headings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().String("config", defaultConfigPath(), "config file path")

	root.AddCommand(
		newSearchCmd(),
		newShowCmd(),
		newMCPCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

func defaultConfigPath() string {
	if v := os.Getenv("WEBSIFT_CONFIG"); v != "" {
		return v
	}
	return "./websift.yaml"
}

func configFlag(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func newSearchCmd() *cobra.Command {
	var (
		p   webSearchFlags
		yes bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a web search and print the report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p.Query = strings.Join(args, " ")

			mode := approvalPrompt
			if yes {
				mode = approvalSkip
			}
			rt, err := newRuntime(cmd.Context(), configFlag(cmd), mode, cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			st := newStatus(cmd.ErrOrStderr())
			rt.events.Subscribe(domain.EventResultExtracted, func(_ context.Context, e domain.Event) {
				if pr, err := e.Progress(); err == nil {
					st.Hint("[%d/%d] %s %s", pr.Index, pr.Total, pr.Status, pr.URL)
				}
			})

			raw, err := json.Marshal(p)
			if err != nil {
				return err
			}
			t, err := rt.registry.Get("web_search")
			if err != nil {
				return err
			}
			res, err := t.Execute(cmd.Context(), raw)
			rt.events.Close()
			if err != nil {
				return err
			}
			if res.IsError {
				st.Fail("%s", res.Content)
				return &toolFailure{code: res.Code}
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Content)
			if o := rt.runner.Last(); o != nil {
				printOutcome(st, o)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.Domain, "domain", "d", "", "restrict results to this host")
	f.IntVarP(&p.MaxResults, "max-results", "n", 0, "number of results to process")
	f.IntVarP(&p.SlidingWindowSize, "window", "w", 0, "words per key phrase window")
	f.StringVarP(&p.ChunkDir, "out", "o", "", "directory for the JSON artifact")
	f.BoolVarP(&yes, "yes", "y", false, "skip the approval prompt")
	return cmd
}

// toolFailure is an error result already printed to the user. It keeps
// the result's category for the exit code.
type toolFailure struct {
	code domain.ErrorCode
}

func (e *toolFailure) Error() string {
	if e.code == "" {
		return "tool failed"
	}
	return "tool failed: " + string(e.code)
}

func (e *toolFailure) Is(target error) bool { return target == errReported }

// webSearchFlags mirrors the web_search tool parameters.
type webSearchFlags struct {
	Query             string `json:"query"`
	Domain            string `json:"domain,omitempty"`
	MaxResults        int    `json:"maxResults,omitempty"`
	SlidingWindowSize int    `json:"slidingWindowSize,omitempty"`
	ChunkDir          string `json:"chunkDir,omitempty"`
}

func printOutcome(st *status, o *search.Outcome) {
	n := len(o.Processed.Results)
	if partial := o.Partial(); partial > 0 {
		st.Warn("%d results, %d without page content", n, partial)
		for _, x := range o.Extractions {
			if x.Status.Partial() {
				st.Hint("%s: %s", x.Result.URL, x.Status.Reason)
			}
		}
	} else {
		st.OK("%d results", n)
	}
	st.Hint("artifact %s (run %s)", o.ArtifactPath, o.RunID)
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <artifact.json>",
		Short: "Print the report for a saved search artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			p, err := artifact.NewFileStore(logger.Discard()).Load(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), search.FormatReport(p, path))
			return nil
		},
	}
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the web_search tool to an MCP client over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(cmd.Context(), configFlag(cmd), approvalHost, nil, nil)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			s := mcpserver.New("websift", version, rt.registry, rt.logger.With("component", "mcp"))
			err = s.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "websift %s\n", version)
		},
	}
}

// exitCode maps an error category to a process exit status for scripts.
func exitCode(err error) int {
	code := domain.ErrorCodeOf(err)
	var tf *toolFailure
	if errors.As(err, &tf) {
		code = tf.code
	}
	switch code {
	case domain.CodeInvalidInput:
		return 2
	case domain.CodeConfigLoad:
		return 3
	default:
		return 1
	}
}
