package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_exams.sql
var createExamsSQL string

//go:embed 0002_create_answer_records.sql
var createAnswerRecordsSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.Exec(createExamsSQL); err != nil {
				return err
			}
			_, err := db.Exec(createAnswerRecordsSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			if _, err := db.Exec(`DROP TABLE IF EXISTS answer_records`); err != nil {
				return err
			}
			_, err := db.Exec(`DROP TABLE IF EXISTS exams`)
			return err
		},
	)
}
