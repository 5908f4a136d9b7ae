package engine

import (
	"fmt"
	"os"
)

const backupSuffix = ".kubecuro.bak"

// persist atomically replaces path with data. The original is first
// renamed to a sibling backup; any failure while writing the new content
// restores the backup, so the file is never left truncated or missing.
func persist(path string, data []byte) error {
	return persistWith(path, data, writeFileSync)
}

// persistWith exists so tests can inject a failing content writer.
func persistWith(path string, data []byte, write func(string, []byte, os.FileMode) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	perm := info.Mode().Perm()

	backup := path + backupSuffix
	if err := os.Rename(path, backup); err != nil {
		return err
	}

	if err := write(path, data, perm); err != nil {
		if restoreErr := os.Rename(backup, path); restoreErr != nil {
			return fmt.Errorf("write failed (%v) and backup restore failed: %w", err, restoreErr)
		}
		return err
	}

	return os.Remove(backup)
}

func writeFileSync(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
