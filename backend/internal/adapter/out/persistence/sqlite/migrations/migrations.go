package migrations

import "embed"

// FS содержит SQL миграции хранилища ворот
//
//go:embed *.sql
var FS embed.FS
