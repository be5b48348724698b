// 包 utils：环境变量到外部客户端（Postgres、Redis）与本地证书的装配
package utils

import (
	"database/sql"
	"net"
	"net/url"

	_ "github.com/lib/pq"
)

// 文档注释：由环境变量拼出 Postgres 连接串
// 背景：PG_DSN 优先；否则按 PG_HOST / PG_PORT / PG_USER / PG_PASSWORD / PG_DB / PG_SSLMODE 组装。
// 约束：用户名与密码按 URL userinfo 转义，密码为空时省略。
func BuildPostgresDSNFromEnv() string {
	if dsn := EnvString("PG_DSN", ""); dsn != "" {
		return dsn
	}
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(EnvString("PG_HOST", "localhost"), EnvString("PG_PORT", "5432")),
		Path:     "/" + EnvString("PG_DB", "skyhtm"),
		RawQuery: url.Values{"sslmode": {EnvString("PG_SSLMODE", "disable")}}.Encode(),
	}
	user := EnvString("PG_USER", "postgres")
	if pass := EnvString("PG_PASSWORD", ""); pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

// OpenPostgresFromEnv 打开连接池；连接在首次查询时建立
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(EnvInt("PG_MAX_OPEN_CONNS", 50))
	db.SetMaxIdleConns(EnvInt("PG_MAX_IDLE_CONNS", 25))
	db.SetConnMaxLifetime(EnvSeconds("PG_CONN_MAX_LIFETIME_S", 0))
	return db, nil
}
