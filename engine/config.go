/*
 * config.go, part of goDMD.
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
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"

	dmd "github.com/rmera/godmd"
)

// Config is the tool configuration, usually ~/.godmd/config.toml.
type Config struct {
	Paths struct {
		Bin        string `toml:"bin"`
		Parameters string `toml:"parameters"`
	} `toml:"paths"`
	Programs Programs `toml:"programs"`
	Engine   struct {
		Metal string `toml:"metal"`
		Cores int    `toml:"cores"`
	} `toml:"engine"`
	// Env are extra "KEY=value" entries for the environment of the programs.
	Env []string `toml:"env"`
}

// Programs are the names (or paths) of the external programs.
type Programs struct {
	DMD     string `toml:"dmd"`
	Complex string `toml:"complex"`
	Movie   string `toml:"movie"`
	Babel   string `toml:"babel"`
	Propka  string `toml:"propka"`
}

// DefaultConfig returns the configuration used when there is no config file.
func DefaultConfig() Config {
	var c Config
	c.Programs = Programs{
		DMD:     "pdmd.linux",
		Complex: "complex-1.linux",
		Movie:   "complex_M2P.linux",
		Babel:   "babel",
		Propka:  "propka31",
	}
	c.Engine.Metal = dmd.DefaultMetal
	c.Engine.Cores = 1
	return c
}

// DefaultConfigFile returns the default location of the configuration file.
func DefaultConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".godmd", "config.toml")
}

// LoadConfig reads the TOML configuration file name. Values missing from
// the file, or the whole file if it doesn't exist, take the defaults.
func LoadConfig(name string) (Config, error) {
	c := DefaultConfig()
	f, err := os.Open(name)
	if os.IsNotExist(err) {
		log.Printf("LoadConfig: %s not found, using defaults", name)
		return c, nil
	}
	if err != nil {
		return c, dmd.Decorate(err, "LoadConfig")
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	if err := dec.Decode(&c); err != nil {
		return c, dmd.NewError(dmd.ErrValidation, "LoadConfig", "%s: %s", name, err.Error())
	}
	def := DefaultConfig()
	fill := func(s *string, d string) {
		if strings.TrimSpace(*s) == "" {
			*s = d
		}
	}
	fill(&c.Programs.DMD, def.Programs.DMD)
	fill(&c.Programs.Complex, def.Programs.Complex)
	fill(&c.Programs.Movie, def.Programs.Movie)
	fill(&c.Programs.Babel, def.Programs.Babel)
	fill(&c.Programs.Propka, def.Programs.Propka)
	//"none" keeps the metals as they are.
	c.Engine.Metal = strings.ToLower(c.Engine.Metal)
	fill(&c.Engine.Metal, def.Engine.Metal)
	if c.Engine.Metal == "none" {
		c.Engine.Metal = ""
	}
	if c.Engine.Cores <= 0 {
		c.Engine.Cores = 1
	}
	for _, e := range c.Env {
		if !strings.Contains(e, "=") {
			return c, dmd.NewError(dmd.ErrValidation, "LoadConfig", "environment entry %q is not KEY=value", e)
		}
	}
	return c, nil
}

// Context is where and how the external programs are run. It replaces
// changing the working directory and the environment of the process.
// A Context is not modified by the functions that use it.
type Context struct {
	Dir          string // working directory for the programs and their files
	BinDir       string // where the programs are, prepended to PATH
	ParameterDir string // the DMD parameter directory
	Programs     Programs
	Env          []string
	Cores        int
	Metal        string
	// RunID identifies the run in the logs and the engine output.
	RunID string
}

// NewContext returns a context for running the programs in dir.
func NewContext(dir string, c Config) *Context {
	return &Context{
		Dir:          dir,
		BinDir:       c.Paths.Bin,
		ParameterDir: c.Paths.Parameters,
		Programs:     c.Programs,
		Env:          append([]string(nil), c.Env...),
		Cores:        c.Engine.Cores,
		Metal:        c.Engine.Metal,
		RunID:        uuid.NewString(),
	}
}

// WithDir returns a copy of C that works in dir.
func (C *Context) WithDir(dir string) *Context {
	ret := *C
	ret.Env = append([]string(nil), C.Env...)
	ret.Dir = dir
	return &ret
}

// Path returns name relative to the working directory. Absolute names are
// returned as they are.
func (C *Context) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(C.Dir, name)
}

// Exists returns true if the file name exists in the working directory.
func (C *Context) Exists(name string) bool {
	_, err := os.Stat(C.Path(name))
	return err == nil
}

// environ is the environment for the programs: the one of this process, with the
// bin directory at the front of PATH, and the entries of C.Env.
func (C *Context) environ() []string {
	env := make([]string, 0, len(os.Environ())+len(C.Env)+1)
	for _, e := range os.Environ() {
		if C.BinDir != "" && strings.HasPrefix(e, "PATH=") {
			continue
		}
		env = append(env, e)
	}
	if C.BinDir != "" {
		env = append(env, "PATH="+C.BinDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	return append(env, C.Env...)
}

// program returns the path of the program prog, in the bin directory if it's there.
func (C *Context) program(prog string) string {
	if C.BinDir == "" || strings.ContainsRune(prog, os.PathSeparator) {
		return prog
	}
	p := filepath.Join(C.BinDir, prog)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return prog
}
