/*
 * cli.go, part of goDMD.
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

// Package cli has the pieces shared by the goDMD programs.
package cli

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/rmera/godmd/engine"
)

// LogFile is the log kept in the job directory.
const LogFile = "dmdpy.log"

// Log sends the standard logger to stderr and to the log file in dir. The
// returned function closes the file.
func Log(dir string) (func(), error) {
	f, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return func() {}, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetFlags(log.LstdFlags)
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// Context loads the tool configuration config (the default one if empty) and returns
// a context for the job in dir. cores, if positive, replaces the configured value.
func Context(config, dir string, cores int) (*engine.Context, error) {
	if config == "" {
		config = engine.DefaultConfigFile()
	}
	c, err := engine.LoadConfig(config)
	if err != nil {
		return nil, err
	}
	if cores > 0 {
		c.Engine.Cores = cores
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return engine.NewContext(abs, c), nil
}
