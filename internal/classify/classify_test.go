package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlgate/sqlgate/internal/dialect"
	"github.com/sqlgate/sqlgate/internal/gateerr"
)

func TestClassify_ReadOnly(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"SELECT * FROM users",
		"SELECT id, name FROM users WHERE id = 1",
		"select * from users",
		"SHOW TABLES",
		"DESCRIBE users",
		"DESC users",
		"EXPLAIN SELECT * FROM users",
		"WITH t AS (SELECT 1) SELECT * FROM t",
		"SELECT * FROM settings",
		"SELECT created_at FROM orders",
		"SELECT updated_at FROM products",
		"SELECT deleted FROM items",
		"SELECT * FROM users WHERE name = 'DROP TABLE users'", // keyword in string literal
		"SELECT 1 -- trailing comment",
		"SELECT 1; ", // single statement with trailing terminator
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.NoError(t, err)
			assert.Equal(t, ReadOnly, class)
		})
	}
}

func TestClassify_Mutating(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"INSERT INTO users VALUES (1, 'test')",
		"UPDATE users SET name = 'test'",
		"DELETE FROM users WHERE id = 1",
		"insert into users (id) values (1)",
		"WITH doomed AS (SELECT id FROM users) DELETE FROM users WHERE id IN (SELECT id FROM doomed)",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.NoError(t, err)
			assert.Equal(t, Mutating, class)
		})
	}
}

func TestClassify_SchemaAltering(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"CREATE TABLE test (id INT)",
		"ALTER TABLE users ADD COLUMN age INT",
		"DROP TABLE users",
		"TRUNCATE TABLE users",
		"GRANT ALL ON users TO someone",
		"REVOKE ALL ON users FROM someone",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.NoError(t, err)
			assert.Equal(t, SchemaAlter, class)
		})
	}
}

func TestClassify_Disallowed(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"SET journal_mode = WAL",
		"VACUUM",
		"BEGIN",
		"COMMIT",
		"CALL some_procedure()",
		"EXECUTE stmt",
		"frobnicate the database",
		"42",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.Error(t, err)
			assert.Equal(t, Disallowed, class)
			assert.Equal(t, gateerr.KindValidation, gateerr.KindOf(err))
		})
	}
}

func TestClassify_StackedStatements(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"SELECT 1; DROP TABLE users",
		"SELECT 1; SELECT 2",
		"SELECT 1; -- comment\nDROP TABLE users",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.Error(t, err)
			assert.Equal(t, Disallowed, class)
			assert.Contains(t, err.Error(), "multiple statements")
		})
	}
}

func TestClassify_TerminatorInsideLiteralOrComment(t *testing.T) {
	d := &dialect.SQLite{}
	queries := []string{
		"SELECT 1 -- ; DROP TABLE users",
		"SELECT 1 /* ; DROP TABLE users */",
		"SELECT * FROM users WHERE note = 'a; b'",
	}

	for _, query := range queries {
		t.Run(query, func(t *testing.T) {
			class, err := Classify(query, d)
			require.NoError(t, err)
			assert.Equal(t, ReadOnly, class)
		})
	}
}

func TestClassify_EmptyStatement(t *testing.T) {
	d := &dialect.SQLite{}
	for _, query := range []string{"", "   ", "\n\t"} {
		class, err := Classify(query, d)
		require.Error(t, err)
		assert.Equal(t, Disallowed, class)
		assert.Equal(t, gateerr.KindValidation, gateerr.KindOf(err))
	}
}

func TestClassify_ForbiddenConstructs(t *testing.T) {
	tests := []struct {
		d     dialect.Dialect
		query string
	}{
		{&dialect.SQLite{}, "SELECT load_extension('hack.so')"},
		{&dialect.SQLite{}, "ATTACH DATABASE '/tmp/other.db' AS other"},
		{&dialect.Postgres{}, "SELECT pg_sleep(10)"},
		{&dialect.Postgres{}, "SELECT pg_read_file('/etc/passwd')"},
		{&dialect.MySQL{}, "SELECT * INTO OUTFILE '/tmp/x' FROM users"},
		{&dialect.MySQL{}, "SELECT SLEEP(10)"},
		{&dialect.MySQL{}, "SELECT BENCHMARK(1000000, SHA1('x'))"},
	}

	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			class, err := Classify(tc.query, tc.d)
			require.Error(t, err)
			assert.Equal(t, Disallowed, class)
		})
	}
}

func TestCheckParams_QuestionStyle(t *testing.T) {
	d := &dialect.SQLite{}

	assert.NoError(t, CheckParams("SELECT * FROM users WHERE id = ?", []any{1}, d))
	assert.NoError(t, CheckParams("SELECT 1", nil, d))
	// a ? inside a string literal is not a placeholder
	assert.NoError(t, CheckParams("SELECT * FROM users WHERE name = 'what?'", nil, d))

	err := CheckParams("SELECT * FROM users WHERE id = ? AND name = ?", []any{1}, d)
	require.Error(t, err)
	assert.Equal(t, gateerr.KindValidation, gateerr.KindOf(err))
}

func TestCheckParams_DollarStyle(t *testing.T) {
	d := &dialect.Postgres{}

	assert.NoError(t, CheckParams("SELECT * FROM users WHERE id = $1", []any{1}, d))
	assert.NoError(t, CheckParams("SELECT * FROM users WHERE id = $1 OR parent = $1", []any{1}, d))
	assert.NoError(t, CheckParams("SELECT * FROM users WHERE id = $1 AND name = $2", []any{1, "a"}, d))

	err := CheckParams("SELECT * FROM users WHERE id = $1 AND name = $2", []any{1}, d)
	require.Error(t, err)
	assert.Equal(t, gateerr.KindValidation, gateerr.KindOf(err))
}
