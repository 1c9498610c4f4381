/*
 * errors.go, part of goDMD.
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

package dmd

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every Error returned by this library wraps one of them,
// so callers can use errors.Is to tell the kinds apart.
var (
	// ErrNotFound means a referenced chain, residue or atom is absent.
	ErrNotFound = errors.New("not found")
	// ErrValue means a value can't be represented, e.g. a name that doesn't fit its field.
	ErrValue = errors.New("invalid value")
	// ErrValidation means a malformed or missing parameter.
	ErrValidation = errors.New("validation failed")
	// ErrExternalTool means an external program could not be started, or
	// didn't produce the file it was expected to produce.
	ErrExternalTool = errors.New("external tool failure")
)

// Error is the error type for all packages in goDMD. The Decorate method allows to add
// the names of the functions the error went through, without changing its type.
type Error struct {
	kind    error
	message string
	deco    []string
}

// NewError returns an Error of the given kind, with the message given by format and args.
func NewError(kind error, caller string, format string, args ...interface{}) Error {
	e := Error{kind: kind, message: fmt.Sprintf(format, args...)}
	if caller != "" {
		e.deco = []string{caller}
	}
	return e
}

// Error returns a string with an error message.
func (err Error) Error() string {
	if len(err.deco) == 0 {
		return fmt.Sprintf("%s: %s", err.kind, err.message)
	}
	return fmt.Sprintf("%s: %s: %s", strings.Join(err.deco, ": "), err.kind, err.message)
}

// Decorate adds dec to the decoration slice of strings of the error,
// and returns the resulting slice. An empty dec just returns the current slice.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append([]string{dec}, err.deco...)
	}
	return err.deco
}

// Unwrap returns the kind of the error.
func (err Error) Unwrap() error { return err.kind }

// Decorate adds the caller's name to err if it is an Error, or
// wraps it otherwise. A nil error stays nil.
func Decorate(err error, caller string) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(Error); ok {
		e.Decorate(caller)
		return e
	}
	return fmt.Errorf("%s: %w", caller, err)
}

func notFound(caller, format string, args ...interface{}) error {
	return NewError(ErrNotFound, caller, format, args...)
}
