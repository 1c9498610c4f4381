/*
 * snapshot.go, part of goDMD.
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

package titrate

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
)

// Compressed copies of the echo file and the accumulated movie after the
// last successful evaluation.
const (
	EchoSnapshot  = "_last_echo.zst"
	MovieSnapshot = "_last_movie.pdb.zst"
)

// compress writes a zstd-compressed copy of src to dst.
func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return dmd.Decorate(err, "compress")
	}
	defer in.Close()
	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return dmd.Decorate(err, "compress")
	}
	z, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		out.Close()
		return dmd.Decorate(err, "compress")
	}
	if _, err = io.Copy(z, in); err != nil {
		z.Close()
		out.Close()
		return dmd.Decorate(err, "compress")
	}
	if err = z.Close(); err != nil {
		out.Close()
		return dmd.Decorate(err, "compress")
	}
	if err = out.Close(); err != nil {
		return dmd.Decorate(err, "compress")
	}
	//the old snapshot is only replaced by a complete one.
	return dmd.Decorate(os.Rename(tmp, dst), "compress")
}

// decompress writes the decompressed contents of src to dst.
func decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return dmd.Decorate(err, "decompress")
	}
	defer in.Close()
	z, err := zstd.NewReader(in)
	if err != nil {
		return dmd.Decorate(err, "decompress")
	}
	defer z.Close()
	out, err := os.Create(dst)
	if err != nil {
		return dmd.Decorate(err, "decompress")
	}
	if _, err = io.Copy(out, z); err != nil {
		out.Close()
		return dmd.Decorate(err, "decompress")
	}
	return dmd.Decorate(out.Close(), "decompress")
}

// Snapshot saves the echo file and the accumulated movie as the last good state.
func Snapshot(C *engine.Context, echo, movie string) error {
	if err := compress(C.Path(echo), C.Path(EchoSnapshot)); err != nil {
		return dmd.Decorate(err, "Snapshot")
	}
	return dmd.Decorate(compress(C.Path(movie), C.Path(MovieSnapshot)), "Snapshot")
}

// HasSnapshot returns true if there is a last good state to go back to.
func HasSnapshot(C *engine.Context) bool {
	return C.Exists(EchoSnapshot) && C.Exists(MovieSnapshot)
}

// Restore replaces the echo file and the accumulated movie with the last good
// state, and returns the last frame of that movie. It is an ErrNotFound
// error if there is no snapshot.
func Restore(C *engine.Context, echo, movie string) (*dmd.Protein, error) {
	if !HasSnapshot(C) {
		return nil, dmd.NewError(dmd.ErrNotFound, "Restore", "no previous titration step to go back to")
	}
	if err := decompress(C.Path(EchoSnapshot), C.Path(echo)); err != nil {
		return nil, dmd.Decorate(err, "Restore")
	}
	if err := decompress(C.Path(MovieSnapshot), C.Path(movie)); err != nil {
		return nil, dmd.Decorate(err, "Restore")
	}
	frame, err := dmd.LastFrame(C.Path(movie), "frame")
	return frame, dmd.Decorate(err, "Restore")
}
