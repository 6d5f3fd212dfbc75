package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/plan-systems/klog"
)

var (
	gScriptPath = flag.String("py", "", "run the given gpython script with the _pytme module available")
	gRunREPL    = flag.Bool("repl", false, "start a gpython REPL with the _pytme module available")
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: %s [flags] input [output]\n", os.Args[0])
	fmt.Fprintf(out, "  input   a file whose suffix (bin, b<N>, jst) selects its format, or base-10 index text\n")
	fmt.Fprintf(out, "  output  a file whose suffix selects the output format; omit to print to stdout\n")
	flag.PrintDefaults()
}

// initLogging registers klog's flags (-v, -logtostderr, ...) on fset so they parse with the tool's own flags.
func initLogging(fset *flag.FlagSet) {
	klog.InitFlags(fset)
	fset.Set("logtostderr", "true")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})
}

func main() {

	initLogging(flag.CommandLine)

	flag.Usage = usage
	flag.Parse()

	exitCode := 0
	switch {
	case *gRunREPL || len(*gScriptPath) > 0:
		if err := go_gpython(*gScriptPath); err != nil {
			exitCode = 1
		}
	case flag.NArg() == 1 || flag.NArg() == 2:
		if err := process(flag.Arg(0), flag.Arg(1), os.Stdout); err != nil {
			klog.Errorf("tme: %v", err)
			exitCode = 1
		}
	default:
		flag.Usage()
		exitCode = 2
	}

	klog.Flush()
	os.Exit(exitCode)
}
