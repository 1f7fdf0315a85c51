package model_test

import (
	"os"
	"path/filepath"
)

func mkdirWithFile(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "x.mp3"), []byte("x"), 0600)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
