package schema_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	kpool "github.com/poddle/poddle/pkg/conn/db/postgres/pool"
	"github.com/poddle/poddle/pkg/conn/db/postgres/schema"
)

// fakePool plays the database: it reports a schema version and hands
// out a recording transaction.
type fakePool struct {
	version  int
	hasTable bool
	failOn   string
	tx       *fakeTx
}

var _ kpool.Pool = &fakePool{}

type rowFunc func(dest ...interface{}) error

func (r rowFunc) Scan(dest ...interface{}) error { return r(dest...) }

func (p *fakePool) QueryRow(_ context.Context, sql string, _ ...interface{}) pgx.Row {
	return rowFunc(func(dest ...interface{}) error {
		if !p.hasTable {
			return &pgconn.PgError{Code: pgerrcode.UndefinedTable}
		}
		*(dest[0].(*int)) = p.version
		return nil
	})
}

func (p *fakePool) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return nil, errors.New("statements must go through a transaction")
}

func (p *fakePool) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (p *fakePool) Begin(context.Context) (kpool.Tx, error) {
	p.tx = &fakeTx{failOn: p.failOn}
	return p.tx, nil
}

func (p *fakePool) BeginTx(ctx context.Context, _ pgx.TxOptions) (kpool.Tx, error) {
	return p.Begin(ctx)
}

func (p *fakePool) Ping(context.Context) error { return nil }
func (p *fakePool) Close()                     {}

type fakeTx struct {
	executed   []string
	args       [][]interface{}
	failOn     string
	committed  bool
	rolledBack bool
}

var _ kpool.Tx = &fakeTx{}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if t.failOn != "" && strings.Contains(sql, t.failOn) {
		return nil, errors.New("syntax error")
	}
	t.executed = append(t.executed, sql)
	t.args = append(t.args, args)
	return nil, nil
}

func (t *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (t *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return rowFunc(func(...interface{}) error { return errors.New("unexpected query") })
}

func (t *fakeTx) Begin(context.Context) (kpool.Tx, error) {
	return nil, errors.New("unexpected nested transaction")
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

// repository lays out version directories of .sql files under a temp root.
func repository(t *testing.T, versions map[string]map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for v, files := range versions {
		dir := filepath.Join(root, v)
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		for name, sql := range files {
			if err := os.WriteFile(filepath.Join(dir, name), []byte(sql), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return root
}

func TestSchemaVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("a database without the version table reports 0", func(t *testing.T) {
		pool := &fakePool{hasTable: false}
		got, err := schema.New(pool, t.TempDir()).Version(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != 0 {
			t.Errorf("version: got %d", got)
		}
	})

	t.Run("an upgraded database reports its version", func(t *testing.T) {
		pool := &fakePool{hasTable: true, version: 3}
		got, err := schema.New(pool, t.TempDir()).Version(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got != 3 {
			t.Errorf("version: got %d", got)
		}
	})
}

func TestSchemaUpgrade(t *testing.T) {
	ctx := context.Background()

	repo := repository(t, map[string]map[string]string{
		"1": {"00_tables.sql": `CREATE TABLE "one" ()`},
		"2": {
			"00_first.sql":  `ALTER TABLE "one" ADD COLUMN "a" integer`,
			"01_second.sql": `ALTER TABLE "one" ADD COLUMN "b" integer`,
		},
	})

	t.Run("only versions newer than the database's are applied, in order", func(t *testing.T) {
		pool := &fakePool{hasTable: true, version: 1}

		if err := schema.New(pool, repo).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}

		tx := pool.tx
		if !tx.committed {
			t.Error("the upgrade must commit")
		}
		want := []string{`"a" integer`, `"b" integer`, `DELETE FROM "schema_version"`, `INSERT INTO "schema_version"`}
		if len(tx.executed) != len(want) {
			t.Fatalf("executed: got %v", tx.executed)
		}
		for i, needle := range want {
			if !strings.Contains(tx.executed[i], needle) {
				t.Errorf("statement %d: got %s, want to contain %s", i, tx.executed[i], needle)
			}
		}
		recorded := tx.args[len(tx.args)-1]
		if len(recorded) != 1 || recorded[0] != 2 {
			t.Errorf("recorded version: got %v", recorded)
		}
	})

	t.Run("a fresh database takes every version", func(t *testing.T) {
		pool := &fakePool{hasTable: false}

		if err := schema.New(pool, repo).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}

		tx := pool.tx
		if len(tx.executed) != 7 {
			t.Fatalf("executed: got %v", tx.executed)
		}
		if !strings.Contains(tx.executed[0], `CREATE TABLE "one"`) {
			t.Errorf("first statement: got %s", tx.executed[0])
		}
		recorded := tx.args[len(tx.args)-1]
		if len(recorded) != 1 || recorded[0] != 2 {
			t.Errorf("recorded version: got %v", recorded)
		}
	})

	t.Run("an up-to-date database is left alone", func(t *testing.T) {
		pool := &fakePool{hasTable: true, version: 2}

		if err := schema.New(pool, repo).Upgrade(ctx); err != nil {
			t.Fatal(err)
		}
		if got := pool.tx.executed; len(got) != 0 {
			t.Errorf("executed: got %v", got)
		}
	})

	t.Run("a failing statement rolls the whole upgrade back", func(t *testing.T) {
		pool := &fakePool{hasTable: true, version: 1, failOn: `"b" integer`}

		if err := schema.New(pool, repo).Upgrade(ctx); err == nil {
			t.Fatal("expected the upgrade to fail")
		}
		if pool.tx.committed {
			t.Error("a failed upgrade must not commit")
		}
		if !pool.tx.rolledBack {
			t.Error("a failed upgrade must roll back")
		}
	})
}
