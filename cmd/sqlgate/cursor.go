package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/cli"
)

var (
	cursorSort   string
	cursorValues string
	cursorFormat string
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Encode and decode pagination cursors",
}

var cursorEncodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode sort-field values into a cursor",
	Example: `  # Cursor for a row with created_at 2024-05-01 and id 42
  sqlgate cursor encode --sort "-created_at,id" --values '["2024-05-01", 42]'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := sqlgate.ParseSortSpec(cursorSort)
		if err != nil {
			return cli.RequestError("--sort", err)
		}
		var values []sqlgate.Value
		if err := json.Unmarshal([]byte(cursorValues), &values); err != nil {
			return cli.RequestError("--values must be a JSON array", err)
		}
		token, err := sqlgate.EncodeCursor(spec, values)
		if err != nil {
			return cli.RequestError("encoding cursor", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var cursorDecodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Decode a cursor and check it against a sort",
	Example: `  # Show the values carried by a cursor
  sqlgate cursor decode --sort "-created_at,id" CgpjcmVhdGVk...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(cursorFormat, formatText, formatJSON); err != nil {
			return cli.RequestError("--format", err)
		}
		spec, err := sqlgate.ParseSortSpec(cursorSort)
		if err != nil {
			return cli.RequestError("--sort", err)
		}
		c, err := sqlgate.DecodeCursor(args[0], spec)
		if err != nil {
			return cli.RequestError("decoding cursor", err)
		}

		w := cmd.OutOrStdout()
		if cursorFormat == formatJSON {
			out := make(map[string]sqlgate.Value, len(c.Fields()))
			for _, f := range c.Fields() {
				out[f.Field] = f.Value
			}
			return writeJSON(w, out)
		}
		for _, f := range c.Fields() {
			fmt.Fprintf(w, "%s = %s\n", f.Field, f.Value)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{cursorEncodeCmd, cursorDecodeCmd} {
		c.Flags().StringVar(&cursorSort, "sort", "", "sort the cursor belongs to, e.g. \"-created_at,id\"")
		_ = c.MarkFlagRequired("sort")
	}
	cursorEncodeCmd.Flags().StringVar(&cursorValues, "values", "", "JSON array of sort-field values")
	_ = cursorEncodeCmd.MarkFlagRequired("values")
	cursorDecodeCmd.Flags().StringVarP(&cursorFormat, "format", "o", formatText, "output format: text or json")

	cursorCmd.AddCommand(cursorEncodeCmd)
	cursorCmd.AddCommand(cursorDecodeCmd)
}
