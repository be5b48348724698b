package migrate

import (
	"database/sql"

	"sky-htm/internal/logger"
)

// 背景：首次运行自动创建所需表与索引，保障后续导入与查询
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	for i, s := range schemaStatements {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS _sky_objects (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            ra DOUBLE PRECISION NOT NULL,
            dec DOUBLE PRECISION NOT NULL,
            mag DOUBLE PRECISION NOT NULL DEFAULT 0,
            kind TEXT NOT NULL DEFAULT '',
            htm_id BIGINT NOT NULL,
            htm_level INT NOT NULL
        )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_sky_object_name ON _sky_objects(name)`,
	`CREATE INDEX IF NOT EXISTS idx_sky_objects_level_htm ON _sky_objects(htm_level, htm_id)`,
	`CREATE TABLE IF NOT EXISTS _sky_stats_total (
            id INT PRIMARY KEY,
            total_queries BIGINT NOT NULL DEFAULT 0
        )`,
	`CREATE TABLE IF NOT EXISTS _sky_stats_daily (
            day DATE PRIMARY KEY,
            queries BIGINT NOT NULL DEFAULT 0
        )`,
	`CREATE TABLE IF NOT EXISTS _sky_stats_ops (
            op TEXT PRIMARY KEY,
            queries BIGINT NOT NULL DEFAULT 0
        )`,
	`INSERT INTO _sky_stats_total(id, total_queries)
         VALUES(1, 0)
         ON CONFLICT (id) DO NOTHING`,
}
