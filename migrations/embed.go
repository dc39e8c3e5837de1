// Package migrations содержит SQL миграции схемы для goose
package migrations

import "embed"

// FS файлы миграций, встроенные в бинарник
//
//go:embed *.sql
var FS embed.FS
