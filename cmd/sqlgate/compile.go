package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlgate/internal/cli"
)

var (
	compileDialect     string
	compileFormat      string
	compileInterpolate bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [request]",
	Short: "Compile a request document to SQL",
	Long: `Compile a YAML or JSON request document to a parameterized statement.

The request is read from the given file, or from stdin when the argument is
"-" or omitted. Limits and the filter policy come from the configuration.`,
	Example: `  # Compile a request file for the configured dialect
  sqlgate compile request.yaml

  # Compile from stdin for SQLite, as JSON
  echo '{"table": "users", "filter": {"age": {"$gte": 18}}}' | sqlgate compile --dialect sqlite --format json

  # Show the statement with its parameters inlined (for reading only)
  sqlgate compile request.yaml --interpolate`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(compileFormat, formatText, formatJSON, formatYAML); err != nil {
			return cli.RequestError("--format", err)
		}
		d, err := resolveDialect(compileDialect)
		if err != nil {
			return err
		}

		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		req, err := cli.LoadRequest(path)
		if err != nil {
			return cli.RequestError("loading request", err)
		}
		stmt, err := req.Statement(cfg)
		if err != nil {
			return cli.RequestError("invalid request", err)
		}
		q, err := stmt.Build(d)
		if err != nil {
			return cli.RequestError("compiling request", err)
		}

		if compileInterpolate {
			fmt.Fprintln(cmd.OutOrStdout(), q.Interpolate(d))
			return nil
		}
		return writeCompiled(cmd.OutOrStdout(), compileFormat, d, q)
	},
}

func init() {
	f := compileCmd.Flags()
	f.StringVar(&compileDialect, "dialect", "", "target dialect: postgres or sqlite (default: from config)")
	f.StringVarP(&compileFormat, "format", "o", formatText, "output format: text, json or yaml")
	f.BoolVar(&compileInterpolate, "interpolate", false, "print the statement with parameters inlined")
}
