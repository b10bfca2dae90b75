package store

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupPrefix = "snapshot_"

// Backup データベースファイルをタイムスタンプ付きで複製する
// maxBackups を超えた古い世代は削除する
func (s *Store) Backup(backupDir string, maxBackups int) (string, error) {
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("バックアップディレクトリの作成に失敗: %w", err)
	}

	name := fmt.Sprintf("%s%s.db", backupPrefix, time.Now().Format("20060102_150405"))
	dst := filepath.Join(backupDir, name)

	if err := copyFile(s.dbPath, dst); err != nil {
		return "", fmt.Errorf("バックアップの作成に失敗: %w", err)
	}

	if err := pruneBackups(backupDir, maxBackups); err != nil {
		log.Printf("[store] 古いバックアップの削除に失敗しました: %v", err)
	}

	return dst, nil
}

// ListBackups バックアップファイル名を新しい順に返す
func ListBackups(backupDir string) ([]string, error) {
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), ".db") {
			names = append(names, e.Name())
		}
	}
	// ファイル名にタイムスタンプが入っているため名前の降順が時系列の降順
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func pruneBackups(backupDir string, maxBackups int) error {
	if maxBackups <= 0 {
		return nil
	}
	names, err := ListBackups(backupDir)
	if err != nil {
		return err
	}
	for _, name := range names[min(maxBackups, len(names)):] {
		if err := os.Remove(filepath.Join(backupDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
