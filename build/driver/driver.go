// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package driver runs the checks and the optimization passes on a program
// and resolves the domain of every expression.
package driver

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/gx-org/backend/shape"
	gxiter "github.com/gx-org/stencil/base/iter"
	"github.com/gx-org/stencil/build/domain"
	"github.com/gx-org/stencil/build/fmterr"
	"github.com/gx-org/stencil/build/ir"
	"github.com/gx-org/stencil/build/ir/irkind"
	"github.com/gx-org/stencil/build/passes/check"
	"github.com/gx-org/stencil/build/passes/forward"
	"github.com/gx-org/stencil/build/pexpr"
	"github.com/pkg/errors"
	"github.com/xyproto/env/v2"
	"go.uber.org/multierr"
	"golang.org/x/exp/maps"
)

// Environment variables read by OptionsFromEnv.
const (
	EnvTrace  = "STENCIL_TRACE"
	EnvPasses = "STENCIL_PASSES"
	EnvParams = "STENCIL_PARAMS"
)

type (
	// Options of a compilation.
	Options struct {
		// Params binds parameters to values.
		// Concrete shapes are computed only when all parameters are bound.
		Params map[string]int64
		// Passes is the ordered list of optimization passes to run.
		Passes []string
		// Trace logs the passes being run and the resolved domains.
		Trace bool
		// Logger receives the traces.
		// If nil, traces are written to stderr when Trace is set.
		Logger *slog.Logger
	}

	// Pass is an optimization pass run by the driver.
	Pass func(prog *ir.Program, log *slog.Logger) error
)

var passes = map[string]Pass{
	"forward": func(prog *ir.Program, log *slog.Logger) error {
		stats, err := forward.Run(prog)
		if err != nil {
			return err
		}
		log.Debug("copies forwarded", "forwarded", stats.Forwarded, "removed", stats.Removed)
		return nil
	},
}

// PassNames returns the sorted names of the passes known by the driver.
func PassNames() []string {
	names := make([]string, 0, len(passes))
	for name := range passes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OptionsFromEnv returns the options set by environment variables:
//
//	STENCIL_TRACE=1             trace the compilation on stderr
//	STENCIL_PASSES=forward      comma-separated list of passes
//	STENCIL_PARAMS=N=10,M=4     parameter values
//
// The environment is read again on every call.
func OptionsFromEnv() (Options, error) {
	env.Load()
	opts := Options{
		Trace:  env.Bool(EnvTrace),
		Passes: splitList(env.Str(EnvPasses)),
	}
	params, err := ParseParams(env.Str(EnvParams))
	if err != nil {
		return Options{}, errors.Errorf("invalid %s: %v", EnvParams, err)
	}
	opts.Params = params
	return opts, nil
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// ParseParams parses a list of parameter values of the form N=10,M=4.
func ParseParams(s string) (map[string]int64, error) {
	items := splitList(s)
	if len(items) == 0 {
		return nil, nil
	}
	params := make(map[string]int64, len(items))
	for _, item := range items {
		name, val, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.Errorf("%q is not of the form NAME=VALUE", item)
		}
		if _, dup := params[name]; dup {
			return nil, errors.Errorf("parameter %s given more than once", name)
		}
		v, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, errors.Errorf("cannot parse value of parameter %s: %v", name, err)
		}
		params[name] = v
	}
	return params, nil
}

func (opts *Options) logger() *slog.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	if !opts.Trace {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type (
	// FuncResult is the result of the compilation of a function.
	FuncResult struct {
		Name string
		ID   ir.NodeID
		// Entry is true if the function is not called by another function.
		// The domain of an entry function is computed from the declared
		// domains of its arguments. Otherwise, the domain is the one
		// computed for the last call site.
		Entry bool
		// Domain of the return value.
		Domain *domain.Domain
		// Shape of the return value, nil if not all parameters are bound
		// or if the function is not an entry function.
		Shape *shape.Shape
		// Bytes is the size of the return value given its shape,
		// 0 if the shape or the element type is unknown.
		Bytes int
		// Footprints of the arguments accessed by a stencil.
		Footprints []*ir.Footprint
	}

	// Result of a compilation.
	Result struct {
		// Funcs in declaration order.
		Funcs []FuncResult
		// Domains of all the live nodes of the program.
		Domains map[ir.NodeID]*domain.Domain
		// Env binds parameters to their values.
		Env pexpr.Env
	}
)

// Func returns the result of a function given its name.
func (r *Result) Func(name string) (*FuncResult, bool) {
	for i := range r.Funcs {
		if r.Funcs[i].Name == name {
			return &r.Funcs[i], true
		}
	}
	return nil, false
}

// Compile checks a program, runs the optimization passes, and computes
// the domain of every live node of the program.
// The compilation stops at the first error.
func Compile(prog *ir.Program, opts Options) (res *Result, err error) {
	defer func() {
		err = fmterr.ToStackTraceError(err)
	}()
	log := opts.logger()
	if err := check.Run(prog); err != nil {
		return nil, err
	}
	for _, name := range opts.Passes {
		pass, ok := passes[name]
		if !ok {
			return nil, errors.Errorf("unknown pass %q: available passes are %s", name, strings.Join(PassNames(), ", "))
		}
		log.Debug("running pass", "pass", name)
		if err := pass(prog, log); err != nil {
			return nil, fmterr.PrefixWith("pass %s: ", name)(err)
		}
	}
	vals, err := prog.Env(maps.Clone(opts.Params))
	if err != nil {
		return nil, err
	}
	res = &Result{
		Domains: make(map[ir.NodeID]*domain.Domain),
		Env:     vals,
	}
	prog.ResetDomains()
	funcs := slices.Collect(prog.Funcs())
	isEntry := func(fn ir.NodeID) bool { return len(prog.Uses(fn)) == 0 }
	for fn := range gxiter.Filter(isEntry, funcs) {
		dom, err := prog.ComputeDomain(fn)
		if err != nil {
			return nil, err
		}
		log.Debug("domain", "func", funcName(prog, fn), "domain", dom.String())
	}
	allBound := len(vals) == len(prog.ParamNames())
	for _, fn := range funcs {
		fr, err := funcResult(prog, fn, vals, allBound)
		if err != nil {
			return nil, err
		}
		res.Funcs = append(res.Funcs, fr)
	}
	for id := range prog.LiveNodes() {
		if dom := prog.Domain(id); dom != nil {
			res.Domains[id] = dom
		}
	}
	return res, nil
}

func funcName(prog *ir.Program, fn ir.NodeID) string {
	decl, err := ir.Get[*ir.FuncDecl](prog, fn)
	if err != nil {
		return ""
	}
	return decl.Name
}

func funcResult(prog *ir.Program, fn ir.NodeID, vals pexpr.Env, allBound bool) (FuncResult, error) {
	decl, err := ir.Get[*ir.FuncDecl](prog, fn)
	if err != nil {
		return FuncResult{}, err
	}
	fr := FuncResult{
		Name:   decl.Name,
		ID:     fn,
		Entry:  len(prog.Uses(fn)) == 0,
		Domain: prog.Domain(fn),
	}
	if decl.Stencil {
		if fr.Footprints, err = prog.StencilFootprint(fn); err != nil {
			return FuncResult{}, err
		}
	}
	if fr.Entry && allBound && fr.Domain != nil {
		if fr.Shape, err = fr.Domain.Shape(decl.DType, vals); err != nil {
			return FuncResult{}, fmterr.Position(prog.FSet, decl.Pos, err)
		}
		fr.Bytes = fr.Shape.Size() * irkind.SizeOf(decl.DType)
	}
	return fr, nil
}

// Report writes the errors of a compilation to w, one per line.
// If verbose is set, the stack trace where each error was generated
// is also written.
func Report(w io.Writer, err error, verbose bool) {
	if err == nil {
		return
	}
	var group interface{ Errors() []error }
	if errors.As(err, &group) {
		err = group.(error)
	}
	for _, err := range multierr.Errors(err) {
		if verbose {
			fmt.Fprintf(w, "%+v\n", fmterr.ToStackTraceError(err))
			continue
		}
		fmt.Fprintf(w, "%v\n", err)
	}
}
