package database

import (
	"strings"
	"testing"
)

// readUpMigration は初期スキーママイグレーションの内容を読み込む。
func readUpMigration(t *testing.T) string {
	t.Helper()
	data, err := MigrationsSQL("000001_init_schema.up.sql")
	if err != nil {
		t.Fatalf("マイグレーションファイルの読み込みに失敗: %v", err)
	}
	return string(data)
}

func TestSchema_AllTablesDefined(t *testing.T) {
	sql := readUpMigration(t)

	tables := []string{
		"fetch_logs",
		"users",
		"posts",
		"comments",
		"albums",
		"photos",
		"todos",
		"normalized_items",
	}
	for _, table := range tables {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema should define table %q", table)
		}
	}
}

// TestSchema_CascadingDeletes は親行削除時のカスケード削除が
// スキーマレベルで宣言されていることを検証する。
// users→posts/albums/todos、posts→comments、albums→photos。
func TestSchema_CascadingDeletes(t *testing.T) {
	sql := readUpMigration(t)

	cascades := []struct {
		child  string
		clause string
	}{
		{"posts", "user_id BIGINT REFERENCES users (id) ON DELETE CASCADE"},
		{"comments", "post_id BIGINT REFERENCES posts (id) ON DELETE CASCADE"},
		{"albums", "user_id BIGINT REFERENCES users (id) ON DELETE CASCADE"},
		{"photos", "album_id BIGINT REFERENCES albums (id) ON DELETE CASCADE"},
		{"todos", "user_id BIGINT REFERENCES users (id) ON DELETE CASCADE"},
	}
	for _, c := range cascades {
		if !strings.Contains(sql, c.clause) {
			t.Errorf("table %q should declare cascading FK: %q", c.child, c.clause)
		}
	}
}

// TestSchema_NormalizedItemsHasNoFK は正規化アイテムが親を
// 緩く参照するのみ（FK制約なし）であることを検証する。
func TestSchema_NormalizedItemsHasNoFK(t *testing.T) {
	sql := readUpMigration(t)

	start := strings.Index(sql, "CREATE TABLE IF NOT EXISTS normalized_items (")
	if start < 0 {
		t.Fatal("normalized_items table not found")
	}
	end := strings.Index(sql[start:], ");")
	if end < 0 {
		t.Fatal("normalized_items table definition not terminated")
	}
	tableDef := sql[start : start+end]

	if strings.Contains(tableDef, "REFERENCES") {
		t.Error("normalized_items should not enforce foreign keys")
	}
}

// TestSchema_FilterColumnsIndexed は絞り込みに使う列へ
// セカンダリインデックスが定義されていることを検証する。
func TestSchema_FilterColumnsIndexed(t *testing.T) {
	sql := readUpMigration(t)

	indexes := []string{
		"idx_fetch_logs_fetched_at",
		"idx_posts_user_id",
		"idx_comments_post_id",
		"idx_albums_user_id",
		"idx_photos_album_id",
		"idx_todos_user_id",
		"idx_todos_completed",
		"idx_normalized_items_endpoint",
		"idx_normalized_items_user_id",
		"idx_normalized_items_post_id",
		"idx_normalized_items_album_id",
		"idx_normalized_items_completed",
	}
	for _, idx := range indexes {
		if !strings.Contains(sql, idx) {
			t.Errorf("schema should define index %q", idx)
		}
	}
}

// TestSchema_DownMigrationDropsAllTables はdownマイグレーションが
// 全テーブルを子→親の順でドロップすることを検証する。
func TestSchema_DownMigrationDropsAllTables(t *testing.T) {
	data, err := MigrationsSQL("000001_init_schema.down.sql")
	if err != nil {
		t.Fatalf("downマイグレーションの読み込みに失敗: %v", err)
	}
	sql := string(data)

	// 子テーブルが親テーブルより先にドロップされること
	ordered := []string{"comments", "posts", "users"}
	last := -1
	for _, table := range ordered {
		pos := strings.Index(sql, "DROP TABLE IF EXISTS "+table)
		if pos < 0 {
			t.Fatalf("down migration should drop table %q", table)
		}
		if pos < last {
			t.Errorf("table %q dropped out of order", table)
		}
		last = pos
	}
}

func TestOpen_ReturnsDBForAnyURL(t *testing.T) {
	// sql.Openはドライバ名が正しければURLフォーマットに関わらず成功する。
	// 実際の接続検証はdb.Ping()で行う。
	db, err := Open("postgres://invalid")
	if err != nil {
		t.Fatalf("Open returned unexpected error: %v", err)
	}
	if db == nil {
		t.Fatal("expected non-nil db")
	}
	defer db.Close()
}
