package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/cli"
	"github.com/pthm/sqlgate/pkg/filterjson"
)

var (
	validateFile    string
	validateTable   string
	validateDialect string
)

var validateCmd = &cobra.Command{
	Use:   "validate [filter]",
	Short: "Validate a JSON filter",
	Long: `Validate a JSON filter against the configured filter policy.

The filter is taken from the argument, from --file, or from stdin. On success
the WHERE clause it compiles to is printed. Errors carry a gRPC status code and,
for misspelled operators, a suggestion.`,
	Example: `  # Validate an inline filter
  sqlgate validate '{"age": {"$gte": 18}, "status": {"$in": ["active", "trial"]}}'

  # Validate a filter file
  sqlgate validate --file filter.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readFilter(cmd.InOrStdin(), args)
		if err != nil {
			return cli.RequestError("reading filter", err)
		}
		d, err := resolveDialect(validateDialect)
		if err != nil {
			return err
		}

		policy, err := cfg.Policy()
		if err != nil {
			return cli.ConfigError("filter policy", err)
		}
		filter, err := filterjson.ParseWithPolicy(data, policy)
		if err != nil {
			return cli.RequestError(fmt.Sprintf("invalid filter (%s)", sqlgate.ToStatus(err).Code()), err)
		}

		q, err := sqlgate.Delete(validateTable).Where(filter).Build(d)
		if err != nil {
			return cli.RequestError("invalid filter", err)
		}
		if !quiet {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Filter is valid.")
			_, where, _ := strings.Cut(q.SQL, " WHERE ")
			fmt.Fprintf(w, "  WHERE %s\n", where)
			for i, p := range q.Params {
				fmt.Fprintf(w, "  %s = %s\n", d.Placeholder(i+1), p)
			}
		}
		return nil
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFile, "file", "f", "", "read the filter from a file (\"-\" for stdin)")
	f.StringVar(&validateTable, "table", "t", "table name used to render the filter")
	f.StringVar(&validateDialect, "dialect", "", "target dialect: postgres or sqlite (default: from config)")
}

func readFilter(stdin io.Reader, args []string) ([]byte, error) {
	switch {
	case len(args) == 1 && validateFile != "":
		return nil, fmt.Errorf("pass the filter as an argument or with --file, not both")
	case len(args) == 1:
		return []byte(args[0]), nil
	case validateFile != "" && validateFile != "-":
		return os.ReadFile(validateFile)
	default:
		return io.ReadAll(stdin)
	}
}
