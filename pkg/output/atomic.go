package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ideenfinder/pkg/utils"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// rename is swapped in tests to force a failure halfway through a merge.
var rename = os.Rename

// writeAtomic writes files into a sibling temp directory and moves it onto dir.
// An empty existing dir is replaced. A non-empty one receives the files by
// rename once all of them are on disk, with previous versions restored if any
// rename fails. On error the temp dir is removed.
func writeAtomic(dir string, files []File) (err error) {
	dir = filepath.Clean(dir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, dirPerm); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(dir)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()
	if err := os.Chmod(tmp, dirPerm); err != nil {
		return fmt.Errorf("failed to chmod temp dir: %w", err)
	}

	for _, f := range files {
		if err := utils.WriteFileSync(filepath.Join(tmp, f.Name), f.Data, filePerm); err != nil {
			return err
		}
	}
	utils.SyncDir(tmp)

	info, statErr := os.Stat(dir)
	switch {
	case errors.Is(statErr, os.ErrNotExist):
		if err := rename(tmp, dir); err != nil {
			return fmt.Errorf("failed to move output into place: %w", err)
		}
	case statErr != nil:
		return fmt.Errorf("failed to check output dir: %w", statErr)
	case !info.IsDir():
		return fmt.Errorf("output path %s is not a directory", dir)
	default:
		empty, err := utils.IsEmptyDir(dir)
		if err != nil {
			return err
		}
		if empty {
			if err := os.Remove(dir); err != nil {
				return fmt.Errorf("failed to replace empty output dir: %w", err)
			}
			if err := rename(tmp, dir); err != nil {
				return fmt.Errorf("failed to move output into place: %w", err)
			}
			break
		}
		if err := mergeInto(dir, tmp, files); err != nil {
			return err
		}
		_ = os.RemoveAll(tmp)
		utils.SyncDir(dir)
	}

	utils.SyncDir(parent)
	return nil
}

// mergeInto moves the files staged in tmp into the non-empty dir. Files it
// replaces are parked under tmp and restored if any move fails.
func mergeInto(dir, tmp string, files []File) (err error) {
	for _, f := range files {
		info, statErr := os.Lstat(filepath.Join(dir, f.Name))
		switch {
		case errors.Is(statErr, os.ErrNotExist):
		case statErr != nil:
			return fmt.Errorf("failed to check %s: %w", f.Name, statErr)
		case !info.Mode().IsRegular():
			return fmt.Errorf("cannot replace %s: not a regular file", filepath.Join(dir, f.Name))
		}
	}

	backups := filepath.Join(tmp, ".previous")
	if err := os.Mkdir(backups, dirPerm); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	var parked, placed []string
	defer func() {
		if err == nil {
			return
		}
		for _, name := range placed {
			_ = os.Remove(filepath.Join(dir, name))
		}
		for _, name := range parked {
			_ = rename(filepath.Join(backups, name), filepath.Join(dir, name))
		}
	}()

	for _, f := range files {
		target := filepath.Join(dir, f.Name)
		if _, statErr := os.Lstat(target); statErr == nil {
			if err := rename(target, filepath.Join(backups, f.Name)); err != nil {
				return fmt.Errorf("failed to back up %s: %w", f.Name, err)
			}
			parked = append(parked, f.Name)
		}
		if err := rename(filepath.Join(tmp, f.Name), target); err != nil {
			return fmt.Errorf("failed to move %s into place: %w", f.Name, err)
		}
		placed = append(placed, f.Name)
	}
	return nil
}
