// Command sqllsd is a minimal demonstration entrypoint wiring every
// core component together over an in-memory catalog. Real deployments
// sit this core behind a JSON-RPC transport, which lives outside this
// module; this binary only proves the wiring and runs one completion
// end to end.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/oxhq/sqlls/internal/catalog"
	"github.com/oxhq/sqlls/internal/config"
	"github.com/oxhq/sqlls/internal/dialect"
	"github.com/oxhq/sqlls/internal/ir"
	"github.com/oxhq/sqlls/internal/lspmodel"
	"github.com/oxhq/sqlls/internal/resolve"
	"github.com/oxhq/sqlls/internal/server"
)

func demoCatalog() *catalog.Memory {
	mem := catalog.NewMemory()
	mem.AddTable("", "users",
		catalog.Col("id", "INT", false),
		catalog.Col("username", "VARCHAR", false),
		catalog.Col("email", "VARCHAR", true),
	)
	mem.AddTable("", "orders",
		catalog.Col("id", "INT", false),
		catalog.Col("user_id", "INT", false),
		catalog.Col("total", "DECIMAL", false),
		catalog.Col("status", "VARCHAR", false),
	)
	mem.AddTable("", "order_items",
		catalog.Col("id", "INT", false),
		catalog.Col("order_id", "INT", false),
		catalog.Col("product_id", "INT", false),
		catalog.Col("quantity", "INT", false),
	)
	return mem
}

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	srv := server.New(log, demoCatalog(), resolve.FoldUnquotedOnly)
	for _, d := range []dialect.Dialect{dialect.MySQL, dialect.PostgreSQL, dialect.TiDB, dialect.MariaDB, dialect.CockroachDB} {
		if err := srv.RegisterLowering(d, ir.NewDialectLowering(d)); err != nil {
			log.Fatal("registering lowering", zap.Error(err))
		}
	}

	ctx := context.Background()
	const uri = "file:///demo.sql"
	sql := "SELECT  FROM users"

	if err := srv.Open(ctx, uri, sql, config.EngineConfig{Dialect: dialect.MySQL}); err != nil {
		log.Fatal("open failed", zap.Error(err))
	}

	items, err := srv.Completion(ctx, uri, lspmodel.Position{Line: 0, Character: 7}, "")
	if err != nil {
		log.Fatal("completion failed", zap.Error(err))
	}
	for _, item := range items.Items {
		fmt.Printf("%-20s %v\n", item.Label, item.Kind)
	}
}
