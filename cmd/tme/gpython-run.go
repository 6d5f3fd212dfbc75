package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-python/gpython/py"
	"github.com/go-python/gpython/repl"
	"github.com/go-python/gpython/repl/cli"
	"github.com/plan-systems/klog"

	_ "github.com/fine-structures/tme/pytme"
	_ "github.com/go-python/gpython/stdlib"
)

const kREPLStartup = "import _pytme as tme\n"

func go_gpython(pathname string) error {
	ctx := py.NewContext(py.DefaultContextOpts())

	var err error
	if len(pathname) == 0 {
		replCtx := repl.New(ctx)

		_, err = py.RunSrc(ctx, kREPLStartup, "<startup>", replCtx.Module)
		if err == nil {
			cli.RunREPL(replCtx)
		}

	} else {
		startTime := time.Now()
		klog.V(1).Infof("running script %q", pathname)

		_, err = py.RunFile(ctx, pathname, py.CompileOpts{}, nil)
		if err == nil {
			fmt.Fprintf(os.Stderr, "tme: %s finished in %v\n", filepath.Base(pathname), time.Since(startTime).Round(time.Millisecond))
		}
	}

	ctx.Close()
	<-ctx.Done()

	if err != nil {
		py.TracebackDump(err)
		klog.Errorf("%v", err)
	}
	return err
}
