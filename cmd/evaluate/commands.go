package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

type serviceFactory func() (service.EvaluationService, *service.SubmissionReader, error)

// usageError marks invalid command lines and unknown rubrics.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

type evaluateOptions struct {
	file   string
	model  string
	apiKey string
	plain  bool
	asJSON bool
}

func newRootCommand(factory serviceFactory) *cobra.Command {
	opts := &evaluateOptions{}

	root := &cobra.Command{
		Use:   "evaluate <rubric-id>",
		Short: "Grade a submission against a rubric",
		Long: `Grade a submission against one of the built-in rubrics.

The submission is read from --file, or from stdin when --file is "-" or omitted.

Examples:
  evaluate list
  evaluate platform --file proposal.txt
  cat plan.md | evaluate transformation-plan --model gpt-5-nano
  evaluate schema ecosystem`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &usageError{err: fmt.Errorf("expected exactly one rubric id, got %d", len(args))}
			}
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, factory, args[0], opts)
		},
	}

	root.Flags().StringVarP(&opts.file, "file", "f", "-", "submission file, - for stdin")
	root.Flags().StringVarP(&opts.model, "model", "m", "", "model identifier (defaults to the rubric model)")
	root.Flags().StringVar(&opts.apiKey, "api-key", "", "OpenAI API key used when the rubric accepts an explicit key")
	root.Flags().BoolVar(&opts.plain, "plain", false, "disable colour output")
	root.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")

	root.AddCommand(newListCommand(factory))
	root.AddCommand(newSchemaCommand(factory))

	return root
}

func newListCommand(factory serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available rubrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := factory()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range svc.Rubrics() {
				sources := make([]string, 0, len(r.Credentials))
				for _, source := range r.Credentials {
					sources = append(sources, string(source))
				}
				fmt.Fprintf(out, "%-22s %s %s (%d criteria, keys: %s)\n", r.ID, r.Icon, r.Title, r.CriteriaCount(), strings.Join(sources, " > "))
			}
			return nil
		},
	}
}

func newSchemaCommand(factory serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <rubric-id>",
		Short: "Print the JSON Schema of a rubric response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := factory()
			if err != nil {
				return err
			}
			r, err := svc.Rubric(args[0])
			if err != nil {
				return &usageError{err: fmt.Errorf("%s: %w", args[0], err)}
			}
			document, err := r.SchemaDocument()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(document))
			return err
		},
	}
}

func runEvaluate(cmd *cobra.Command, factory serviceFactory, rubricID string, opts *evaluateOptions) error {
	svc, reader, err := factory()
	if err != nil {
		return err
	}
	if _, err := svc.Rubric(rubricID); err != nil {
		return &usageError{err: fmt.Errorf("%s: %w", rubricID, err)}
	}

	submission, err := readInput(cmd, reader, opts.file)
	if err != nil {
		return err
	}

	outcome, err := svc.Evaluate(cmd.Context(), service.EvaluationRequest{
		RubricID:    rubricID,
		Submission:  submission,
		Model:       opts.model,
		ExplicitKey: opts.apiKey,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome.Report)
	}
	return report.NewTerminalRenderer(opts.plain).Render(out, outcome.Report)
}

func readInput(cmd *cobra.Command, reader *service.SubmissionReader, path string) (string, error) {
	if path == "" || path == "-" {
		return reader.Read(cmd.InOrStdin())
	}

	file, err := os.Open(path)
	if err != nil {
		return "", &usageError{err: fmt.Errorf("open submission: %w", err)}
	}
	defer file.Close()

	return reader.Read(file)
}

// printError writes the user-facing message for err.
func printError(w io.Writer, err error) {
	warn := color.New(color.FgYellow).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()

	if warning, ok := service.Warning(err); ok {
		fmt.Fprintln(w, warn("⚠ "+warning))
		return
	}
	switch {
	case errors.Is(err, ai.ErrEvaluationFailed):
		fmt.Fprintln(w, fail("Evaluation failed: "+service.FailureDetail(err)))
	case errors.Is(err, rubric.ErrNotFound):
		fmt.Fprintln(w, warn("⚠ "+err.Error()+" (run \"evaluate list\")"))
	default:
		fmt.Fprintln(w, fail("Error: "+err.Error()))
	}
}
