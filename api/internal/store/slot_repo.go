package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Surihub/handmath/api/internal/history"
)

var ErrNotFound = history.ErrNotFound

// Dialect holds the statements that differ between SQLite and Postgres.
type Dialect struct {
	Name   string
	schema string
	load   string
	upsert string
	delete string
}

var (
	SQLite = Dialect{
		Name: "sqlite",
		schema: `
CREATE TABLE IF NOT EXISTS history_slots (
    name       TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at INTEGER NOT NULL
)`,
		load: `select value from history_slots where name = ?`,
		upsert: `
insert into history_slots(name, value, updated_at)
values (?, ?, ?)
on conflict (name) do update set value = excluded.value, updated_at = excluded.updated_at`,
		delete: `delete from history_slots where name = ?`,
	}

	Postgres = Dialect{
		Name: "postgres",
		schema: `
create table if not exists history_slots (
    name       text primary key,
    value      bytea not null,
    updated_at bigint not null
)`,
		load: `select value from history_slots where name = $1`,
		upsert: `
insert into history_slots(name, value, updated_at)
values ($1, $2, $3)
on conflict (name) do update set value = excluded.value, updated_at = excluded.updated_at`,
		delete: `delete from history_slots where name = $1`,
	}
)

// SlotRepo stores one serialized value per slot name.
type SlotRepo struct {
	DB      *sql.DB
	Dialect Dialect
}

var _ history.Slot = (*SlotRepo)(nil)

func NewSlotRepo(db *sql.DB, d Dialect) *SlotRepo { return &SlotRepo{DB: db, Dialect: d} }

func (r *SlotRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.schema)
	return err
}

// Load returns ErrNotFound for a slot that was never saved.
func (r *SlotRepo) Load(ctx context.Context, name string) ([]byte, error) {
	var v []byte
	err := r.DB.QueryRowContext(ctx, r.Dialect.load, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Save upserts the slot. PK: name.
func (r *SlotRepo) Save(ctx context.Context, name string, value []byte) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.upsert, name, value, time.Now().Unix())
	return err
}

func (r *SlotRepo) Delete(ctx context.Context, name string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.delete, name)
	if err != nil {
		return err
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}
