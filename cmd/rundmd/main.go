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

// rundmd runs the stages of a DMD job. An interrupted job (the time budget is almost
// over, or the program gets SIGINT or SIGTERM) can be continued by running rundmd again.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rmera/scu"

	dmd "github.com/rmera/godmd"
	"github.com/rmera/godmd/engine"
	"github.com/rmera/godmd/internal/cli"
	"github.com/rmera/godmd/params"
	"github.com/rmera/godmd/setup"
	"github.com/rmera/godmd/simulation"
)

// withoutFlag returns args without the flag name and its value.
func withoutFlag(args []string, name string) []string {
	ret := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return append(ret, args[i:]...)
		}
		f := strings.TrimLeft(a, "-")
		if a == f || strings.HasPrefix(a, "---") {
			ret = append(ret, a)
			continue
		}
		if f == name {
			i++ //the value is the next argument.
			continue
		}
		if strings.HasPrefix(f, name+"=") {
			continue
		}
		ret = append(ret, a)
	}
	return ret
}

// resubmit starts this program again, with the same arguments except the structure,
// as the job is set up already, and doesn't wait for it.
func resubmit() error {
	cmd := exec.Command(os.Args[0], withoutFlag(os.Args[1:], "pdb")...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Printf("resubmitted as process %d", cmd.Process.Pid)
	return cmd.Process.Release()
}

func main() {
	config := flag.String("config", "", "Tool configuration file (TOML). The default is ~/.godmd/config.toml")
	dir := flag.String("dir", ".", "Job (submission) directory")
	scratch := flag.String("scratch", "", "Scratch directory to run the job in. Empty runs it in the job directory")
	hours := flag.Float64("time", -1, "Wall time available, in hours. The job is interrupted 30 minutes before it runs out. Negative for no limit")
	pdb := flag.String("pdb", "", "Structure to set up the job from. Empty if the job is set up already")
	plot := flag.String("plot", "dmd_summary.png", "PNG file for the plot of the energies and temperature of each stage. Empty for no plot")
	cores := flag.Int("cores", 0, "Cores for the DMD engine. 0 uses the configured value")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "rundmd: runs the stages of a DMD job, described in %s.\n Usage:\n  %s [flags]\n\nFlags:\n", params.InputFile, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	engine.Verbose = *verbose
	setup.Verbose = *verbose
	simulation.Verbose = *verbose
	closelog, err := cli.Log(*dir)
	scu.QErr(err)
	defer closelog()
	C, err := cli.Context(*config, *dir, *cores)
	scu.QErr(err)
	opt := simulation.Options{ScratchDir: *scratch, Resubmit: resubmit, Plot: *plot}
	if *hours >= 0 {
		opt.Budget = time.Duration(*hours * float64(time.Hour))
	}
	if *pdb != "" {
		opt.Protein, err = dmd.PDBFileRead(*pdb)
		scu.QErr(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	S, err := simulation.New(C, opt)
	scu.QErr(err)
	start := time.Now()
	state, err := S.Run(ctx)
	scu.QErr(err)
	log.Printf("job %s at time %d after %s", state, S.Clock(), time.Since(start).Round(time.Second))
}
