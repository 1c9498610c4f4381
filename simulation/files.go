/*
 * files.go, part of goDMD.
 *
 *
 * Copyright 2024 The goDMD authors.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package simulation

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	dmd "github.com/rmera/godmd"
)

// BackupDir is where, in the submission directory, the contents of the scratch
// directory are copied when the job is interrupted.
const BackupDir = "dmd_backup"

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree copies the directory src, with everything in it, to dst.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, target, info.Mode())
	})
}

// copyDir copies the contents of src into dst, which is created if needed. Files
// are overwritten, and directories already in dst are replaced. The backup
// directory is never copied.
func copyDir(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return dmd.Decorate(err, "copyDir")
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return dmd.Decorate(err, "copyDir")
	}
	for _, e := range entries {
		if e.Name() == BackupDir {
			continue
		}
		s, d := filepath.Join(src, e.Name()), filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := os.RemoveAll(d); err != nil {
				return dmd.Decorate(err, "copyDir")
			}
			if err := copyTree(s, d); err != nil {
				return dmd.Decorate(err, "copyDir")
			}
			continue
		}
		info, err := e.Info()
		if err != nil {
			return dmd.Decorate(err, "copyDir")
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if err := copyFile(s, d, info.Mode()); err != nil {
			return dmd.Decorate(err, "copyDir")
		}
	}
	return nil
}

// sameDir returns true if a and b are the same directory.
func sameDir(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return a == b
	}
	return filepath.Clean(aa) == filepath.Clean(bb)
}
