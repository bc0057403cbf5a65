// Copyright 2025 The Luma Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package script runs Luma pipeline scripts.
//
// A script is a sequence of commands that load datasets, declare models,
// train, evaluate and save them:
//
//	load dataset "iris.csv" as iris label=species
//	preprocess iris method=normalize as iris_n
//	split iris_n ratio=0.8
//	create model net {
//	    layer dense units=8 activation=relu
//	    layer dense units=3
//	}
//	train model net on iris_n_train epochs=50 loss=cross_entropy optimizer=adam
//	evaluate model net on iris_n_test as score
//	save model net to "net.safetensors"
//
// Example:
//
//	s := script.NewSession(script.DefaultConfig())
//	if err := s.RunScript(ctx, src); err != nil {
//	    fmt.Fprintln(os.Stderr, err) // e.g. NameError: name "net" is not defined (line 6, col 13)
//	}
package script

import (
	"context"

	"github.com/luma-ml/luma/internal/ast"
	"github.com/luma-ml/luma/internal/interp"
	"github.com/luma-ml/luma/internal/parser"
)

// Script is a parsed script.
type Script = ast.Script

// Config holds configuration for a Session.
type Config = interp.Config

// Session executes scripts and interactive lines against one set of
// bindings.
type Session = interp.Session

// Value is a runtime value bound to a name.
type Value = interp.Value

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return interp.DefaultConfig()
}

// NewSession creates a session with no bindings.
func NewSession(cfg Config) *Session {
	return interp.NewSession(cfg)
}

// Parse parses src without executing it.
func Parse(src string) (*Script, error) {
	return parser.Parse(src)
}

// Format returns src in canonical form.
func Format(src string) (string, error) {
	return interp.Format(src)
}

// Run executes src in a new session.
func Run(ctx context.Context, src string, cfg Config) error {
	return NewSession(cfg).RunScript(ctx, src)
}

// ErrorKind names the class of a script error: LexError, ParseError,
// NameError, TypeError, ValueError, ShapeError, NumericError,
// GradientError, or Error for collaborator failures such as I/O.
func ErrorKind(err error) string {
	return interp.Kind(err)
}

// Incomplete reports whether src ends inside an open bracket, so an
// interactive reader should keep reading lines.
func Incomplete(src string) bool {
	return interp.Incomplete(src)
}
