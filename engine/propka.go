/*
 * propka.go, part of goDMD.
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

package engine

import (
	"os"
	"strings"

	dmd "github.com/rmera/godmd"
)

// RunPropka runs the pKa estimator on the structure file pdb, in the working
// directory, and returns the name of the file with its predictions. ok is false
// if the program ran but wrote no predictions. Failing to start the program is
// an ErrExternalTool error.
func RunPropka(C *Context, pdb string) (pka string, ok bool, err error) {
	pka = strings.TrimSuffix(pdb, ".pdb") + ".pka"
	if err := os.Remove(C.Path(pka)); err != nil && !os.IsNotExist(err) {
		return "", false, dmd.Decorate(err, "RunPropka")
	}
	if _, err := C.run(nil, C.Programs.Propka, pdb); err != nil {
		return "", false, dmd.Decorate(err, "RunPropka")
	}
	return pka, C.Exists(pka), nil
}
