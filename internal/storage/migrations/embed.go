package migrations

import "embed"

// PostgresFS holds the dataset catalog and replay run schema.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the tick table schema.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
