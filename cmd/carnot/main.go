package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"carnot/config"
	"carnot/network"
	"carnot/result"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError 带退出码的错误, err 为空时不再打印
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// exitCode 配置和结构错误为 2, 其余为 1
func exitCode(err error) int {
	var (
		ee *exitError
		ce *config.Error
		se *network.StructureError
	)
	switch {
	case err == nil:
		return result.ExitConverged
	case errors.As(err, &ee):
		return ee.code
	case errors.As(err, &ce), errors.As(err, &se):
		return result.ExitInvalid
	}
	return result.ExitFailure
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	var ee *exitError
	if err != nil && !(errors.As(err, &ee) && ee.err == nil) {
		fmt.Fprintln(stderr, "error:", err)
	}
	return exitCode(err)
}
