package store

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store SQLite によるスナップショットキャッシュ
// システムオブレコードではなく、前回取り込みの復元用
type Store struct {
	db     *sql.DB
	dbPath string
}

// New Store を作成してスキーマを初期化する
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("データベースを開けません: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("データベースに接続できません: %w", err)
	}

	// SQLite は単一接続で使う
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, dbPath: dbPath}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("スキーマの初期化に失敗: %w", err)
	}

	return store, nil
}

// initSchema スキーマを適用する
func (s *Store) initSchema() error {
	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("schema.sql の読み込みに失敗: %w", err)
	}

	if _, err := s.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}

	return nil
}

// Close データベース接続を閉じる
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path データベースファイルのパス
func (s *Store) Path() string {
	return s.dbPath
}
