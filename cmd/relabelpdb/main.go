/*
 * main.go, part of goDMD.
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

// relabelpdb renames the atoms of the amino acids in a PDB file to the DMD
// or the PDB naming scheme.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
)

func main() {
	scheme := flag.String("scheme", dmd.SchemeDMD, "Naming scheme to use: dmd or pdb")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "relabelpdb: renames the atoms of a PDB file.\n Usage:\n  %s [flags] input.pdb output.pdb\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		flag.Usage()
		os.Exit(1)
	}
	prot, err := dmd.PDBFileRead(args[0])
	scu.QErr(err)
	scu.QErr(prot.Relabel(*scheme))
	scu.QErr(dmd.PDBFileWrite(args[1], prot))
}
