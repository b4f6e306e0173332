package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const credentialFileName = "credential.json"

// fileRecord は永続ストアの保存形式。
type fileRecord struct {
	Token string `json:"token"`
}

// FileStore は状態ディレクトリ内のファイルにトークンを保存する永続ストア。
// クライアントは有効期限を管理しない。
type FileStore struct {
	dir string
}

// NewFileStore は新しいFileStoreを生成する。
// dirが空の場合は永続化が無効な状態になる。
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (f *FileStore) path() string {
	return filepath.Join(f.dir, credentialFileName)
}

// Get は保存されたトークンを返す。
func (f *FileStore) Get() (string, error) {
	if f.dir == "" {
		return "", ErrUnavailable
	}

	data, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("failed to parse credential file: %w", err)
	}
	return rec.Token, nil
}

// Set はトークンを書き込む。
func (f *FileStore) Set(token string) error {
	if f.dir == "" {
		return ErrUnavailable
	}

	data, err := json.Marshal(fileRecord{Token: token})
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	return writeFileAtomic(f.dir, credentialFileName, data)
}

// Delete はトークンを削除する。存在しない場合も成功とする。
func (f *FileStore) Delete() error {
	if f.dir == "" {
		return ErrUnavailable
	}
	return removeIfExists(f.path())
}

// writeFileAtomic は一時ファイルに書き込んでからリネームする。
// 書き込み途中のファイルが読まれることはない。
func writeFileAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}
