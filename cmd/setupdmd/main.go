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

// setupdmd prepares a DMD job from a structure: the initial structure, the
// topology parameters, the constraints and the state file.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/internal/cli"
	"github.com/rmera/godmd/params"
	"github.com/rmera/godmd/setup"
)

func main() {
	config := flag.String("config", "", "Tool configuration file (TOML). The default is ~/.godmd/config.toml")
	dir := flag.String("dir", ".", "Job directory")
	cores := flag.Int("cores", 0, "Cores for the DMD engine. 0 uses the configured value")
	verbose := flag.Bool("v", false, "Log the output of the external programs")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "setupdmd: prepares a DMD job.\n Usage:\n  %s [flags] structure.pdb\n\nThe job parameters are read from %s in the job directory.\nIf there is no such file, one with default values is written.\n\nFlags:\n", os.Args[0], params.InputFile)
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		flag.Usage()
		os.Exit(1)
	}
	engine.Verbose = *verbose
	setup.Verbose = *verbose
	closelog, err := cli.Log(*dir)
	scu.QErr(err)
	defer closelog()
	C, err := cli.Context(*config, *dir, *cores)
	scu.QErr(err)
	var P params.Parameters
	if C.Exists(params.InputFile) {
		P, err = params.Load(C.Path(params.InputFile))
		scu.QErr(err)
	} else {
		log.Printf("no %s, using the default parameters", params.InputFile)
		P = params.Default()
		scu.QErr(P.Save(C.Path(params.InputFile)))
	}
	prot, err := dmd.PDBFileRead(args[0])
	scu.QErr(err)
	scu.QErr(setup.Full(C, P, prot))
	log.Printf("job ready in %s", C.Dir)
}
