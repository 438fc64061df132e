// Package errors provides an error wrapper which remembers where it was
// created.
//
//	wrapped := xe.Wrap(err)
//
// The message of `wrapped` carries the file, line and function name of the
// call site, chained with `<-` per wrapping level, so that infrastructure
// errors surfacing at the top of a pass still say which layer raised them.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

type errWithCaller struct {
	file     string
	line     int
	funcname string
	err      error
}

func (e *errWithCaller) Error() string {
	return fmt.Sprintf(`@ %s "%s" l%d <- %s`, e.funcname, e.file, e.line, e.err.Error())
}

func (e *errWithCaller) Unwrap() error {
	return e.err
}

func New(text string) error {
	return wrap(errors.New(text))
}

func Wrap(err error) error {
	return wrap(err)
}

func wrap(err error) error {
	pc, file, line, ok := runtime.Caller(2)
	funcname := "(unknown func)"
	if !ok {
		file = "?"
		line = -1
	}
	fn := runtime.FuncForPC(pc)
	if fn != nil {
		funcname = fn.Name()
	}

	return &errWithCaller{
		funcname: funcname,
		file:     file,
		line:     line,
		err:      err,
	}
}
