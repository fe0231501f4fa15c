package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/pthm/sqlgate"
	"github.com/pthm/sqlgate/internal/cli"
	"github.com/pthm/sqlgate/internal/logger"
	"github.com/pthm/sqlgate/pkg/sqlexec"
)

var (
	queryDB      string
	queryDialect string
	queryFormat  string
)

var queryCmd = &cobra.Command{
	Use:   "query [request]",
	Short: "Run a request against the database",
	Long: `Compile a request document and run it against the configured database.

Select requests with a sort and no page or offset are fetched one keyset page
at a time: the output carries the cursors of the neighbouring pages, to pass
back as "after" or "before". Writes print the number of affected rows, or the
returned rows when the request has "returning".`,
	Example: `  # Run a request against the configured database
  sqlgate query request.yaml

  # Use an explicit database and print JSON
  sqlgate query request.yaml --db postgres://localhost/app -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(queryFormat, formatTable, formatJSON); err != nil {
			return cli.RequestError("--format", err)
		}
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		req, err := cli.LoadRequest(path)
		if err != nil {
			return cli.RequestError("loading request", err)
		}
		d, err := resolveDialect(queryDialect)
		if err != nil {
			return err
		}
		dsn, err := resolveDSN(queryDB)
		if err != nil {
			return err
		}

		return runQuery(cmd.Context(), cmd.OutOrStdout(), cfg.Database.Driver, dsn, d, req)
	},
}

func init() {
	f := queryCmd.Flags()
	f.StringVar(&queryDB, "db", "", "database URL")
	f.StringVar(&queryDialect, "dialect", "", "SQL dialect: postgres or sqlite (default: from config)")
	f.StringVarP(&queryFormat, "format", "o", formatTable, "output format: table or json")
}

func runQuery(ctx context.Context, w io.Writer, driver, dsn string, d sqlgate.Dialect, req *cli.Request) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return cli.DBConnectError("connecting to database", err)
	}

	runner := sqlexec.New(db, sqlexec.WithLogger(logger.Get()))

	if req.Op == cli.OpSelect && req.Sort != "" && req.Page == 0 && req.PerPage == 0 && req.Offset == 0 {
		b, err := req.SelectBuilder(cfg)
		if err != nil {
			return cli.RequestError("invalid request", err)
		}
		limit := b.EffectiveLimit()
		if limit == 0 {
			limit = cfg.Limits.MaxLimit
		}
		page, err := runner.FetchPage(ctx, b, d, limit)
		if err != nil {
			return queryError(err)
		}
		return writePage(w, page)
	}

	stmt, err := req.Statement(cfg)
	if err != nil {
		return cli.RequestError("invalid request", err)
	}
	q, err := stmt.Build(d)
	if err != nil {
		return cli.RequestError("compiling request", err)
	}

	if (req.Op == cli.OpUpdate || req.Op == cli.OpDelete) && !req.HasFilter() {
		logger.Warn("statement has no filter and applies to every row", "op", req.Op, "table", req.Table)
	}

	if req.Op != cli.OpSelect && len(req.Returning) == 0 {
		affected, err := runner.Exec(ctx, q)
		if err != nil {
			return queryError(err)
		}
		logger.Info("statement executed", "op", req.Op, "table", req.Table, "rows_affected", affected)
		if queryFormat == formatJSON {
			return writeJSON(w, map[string]int64{"rows_affected": affected})
		}
		fmt.Fprintf(w, "%d rows affected\n", affected)
		return nil
	}

	cols, rows, err := runner.QueryColumns(ctx, q)
	if err != nil {
		return queryError(err)
	}
	return writePage(w, sqlexec.Page{Columns: cols, Rows: rows})
}

func queryError(err error) error {
	if sqlgate.IsClientErr(err) {
		return cli.RequestError("invalid request", err)
	}
	logger.Error("query failed", "error", err)
	return cli.GeneralError("running query", err)
}

func writePage(w io.Writer, page sqlexec.Page) error {
	if queryFormat == formatJSON {
		if page.Rows == nil {
			page.Rows = []map[string]any{}
		}
		return writeJSON(w, page)
	}

	fmt.Fprintln(w, renderTable(page.Columns, page.Rows))
	if quiet {
		return nil
	}
	fmt.Fprintf(w, "%d rows\n", len(page.Rows))
	if page.Info.HasNext {
		fmt.Fprintf(w, "next: %s\n", page.Info.NextCursor)
	}
	if page.Info.HasPrev {
		fmt.Fprintf(w, "prev: %s\n", page.Info.PrevCursor)
	}
	return nil
}
