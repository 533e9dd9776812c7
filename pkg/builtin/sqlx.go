// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builtin

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sandboxrt/core/pkg/component"
	"github.com/sandboxrt/core/pkg/stream"
)

// SQL implements sqlite3: a minimal REPL-less runner that
// executes one or more ';'-separated statements from stdin (or -- an
// inline script argument) against a sqlite3 database, printing result
// rows pipe-delimited, one row per line.
type SQL struct{}

func (SQL) ListCommands() []string { return []string{"sqlite3"} }

func (SQL) Run(ctx context.Context, name string, argv []string, env component.Env, stdin stream.InputStream, stdout, stderr stream.OutputStream) (int, error) {
	if wantsHelp(argv) {
		return usage(stdout, helpText(name))
	}

	dsn := ":memory:"
	var script string
	var positional []string
	for _, a := range argv {
		positional = append(positional, a)
	}
	if len(positional) > 0 {
		if !filepath.IsAbs(positional[0]) {
			dsn = filepath.Join(env.Cwd, positional[0])
		} else {
			dsn = positional[0]
		}
		if positional[0] == ":memory:" {
			dsn = ":memory:"
		}
	}
	if len(positional) > 1 {
		script = strings.Join(positional[1:], " ")
	} else {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return component.ExitFailure, err
		}
		script = string(data)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		fmt.Fprintf(stderr, "sqlite3: %v\n", err)
		return component.ExitFailure, nil
	}
	defer db.Close()

	var out strings.Builder
	for _, stmt := range splitStatements(script) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := runStatement(ctx, db, stmt, &out); err != nil {
			fmt.Fprintf(stderr, "sqlite3: %v\n", err)
			return component.ExitFailure, nil
		}
	}
	return writeAll(stdout, out.String())
}

// splitStatements is a naive ';'-boundary splitter; it does not account
// for semicolons inside string literals, which is an accepted
// simplification for the shell-embedded use case this targets.
func splitStatements(script string) []string {
	return strings.Split(script, ";")
}

func runStatement(ctx context.Context, db *sql.DB, stmt string, out *strings.Builder) error {
	rows, err := db.QueryContext(ctx, stmt)
	if err != nil {
		// Not every statement (CREATE TABLE, INSERT, ...) returns rows;
		// fall back to Exec for those.
		if _, execErr := db.ExecContext(ctx, stmt); execErr != nil {
			return execErr
		}
		return nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		fields := make([]string, len(cols))
		for i, v := range vals {
			fields[i] = formatSQLValue(v)
		}
		out.WriteString(strings.Join(fields, "|"))
		out.WriteByte('\n')
	}
	return rows.Err()
}

func formatSQLValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return fmt.Sprintf("<blob:%d bytes>", len(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}
