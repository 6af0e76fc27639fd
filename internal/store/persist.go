package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FilePersister は状態をJSONファイルに保存する。
type FilePersister struct {
	path string
}

// NewFilePersister はpathに保存するFilePersisterを生成する。
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path は保存先のファイルパスを返す。
func (p *FilePersister) Path() string {
	return p.path
}

// Load は保存済みの状態を読み込む。ファイルが存在しなければ空の状態を返す。
func (p *FilePersister) Load() (State, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("状態ファイルの読み込みに失敗しました: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("状態ファイルの解析に失敗しました: %w", err)
	}
	return st, nil
}

// Save は状態を一時ファイルに書き出してから置き換える。
func (p *FilePersister) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("状態のエンコードに失敗しました: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("状態ディレクトリの作成に失敗しました: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("状態ファイルの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("状態ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("状態ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
