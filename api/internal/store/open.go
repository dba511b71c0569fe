package store

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"
)

// Open connects to the configured backend and applies the schema.
// driver is "sqlite" (dsn is a file path) or "postgres" (dsn is a URL).
func Open(ctx context.Context, driver, dsn string) (*SlotRepo, error) {
	var (
		db  *sql.DB
		d   Dialect
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if dsn == "" {
			dsn = "handmath.db"
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("sql.Open sqlite: %w", err)
		}
		// one writer; sqlite serializes anyway
		db.SetMaxOpenConns(1)
		d = SQLite
	case "postgres", "pgx":
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is empty: set DATABASE_URL")
		}
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("sql.Open pgx: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)
		d = Postgres
	default:
		return nil, fmt.Errorf("unknown store driver %q; use sqlite or postgres", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	r := NewSlotRepo(db, d)
	if err := r.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: %w", err)
	}
	return r, nil
}

func (r *SlotRepo) Close() error { return r.DB.Close() }

// SafeDSNSummary describes a data source for logs. Passwords never appear:
// sqlite shows the file path without its query, postgres shows host, port,
// database and user from either URL or keyword=value form.
func SafeDSNSummary(driver, dsn string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		if dsn == "" {
			dsn = "handmath.db"
		}
		path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
		return "file=" + path
	}
	if strings.Contains(dsn, "://") {
		return urlDSNSummary(dsn)
	}
	kv, ok := parseKeywordDSN(dsn)
	if !ok {
		return "dsn: parse error"
	}
	return summary(kv["host"], kv["port"], kv["dbname"], kv["user"])
}

func urlDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "dsn: parse error"
	}
	host, port := u.Host, ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	return summary(host, port, strings.TrimPrefix(u.Path, "/"), u.User.Username())
}

func summary(host, port, db, user string) string {
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}

// parseKeywordDSN reads libpq's key=value form, including 'quoted values'
// with backslash escapes.
func parseKeywordDSN(s string) (map[string]string, bool) {
	kv := map[string]string{}
	s = strings.TrimSpace(s)
	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, false
		}
		key := strings.TrimSpace(s[:eq])
		s = strings.TrimLeft(s[eq+1:], " \t")
		var val strings.Builder
		if strings.HasPrefix(s, "'") {
			i, closed := 1, false
			for ; i < len(s); i++ {
				if s[i] == '\\' && i+1 < len(s) {
					i++
					val.WriteByte(s[i])
					continue
				}
				if s[i] == '\'' {
					closed = true
					break
				}
				val.WriteByte(s[i])
			}
			if !closed {
				return nil, false
			}
			s = s[i+1:]
		} else {
			end := strings.IndexAny(s, " \t")
			if end < 0 {
				end = len(s)
			}
			val.WriteString(s[:end])
			s = s[end:]
		}
		kv[key] = val.String()
		s = strings.TrimLeft(s, " \t")
	}
	return kv, len(kv) > 0
}
