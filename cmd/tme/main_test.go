package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path"
	"testing"

	"github.com/fine-structures/tme"
)

const bb2Table = "0 _ 1 r 1\n0 1 1 l 1\n1 _ 1 l 0\n1 1 1 r halt"

func TestProcessStdout(t *testing.T) {
	var out bytes.Buffer
	if err := process("20317", "", &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != bb2Table+"\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestProcessFiles(t *testing.T) {
	dir, err := os.MkdirTemp("", "junk*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	tablePath := path.Join(dir, "bb2.jst")
	if err = os.WriteFile(tablePath, []byte("; busy beaver\n"+bb2Table+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	// A table input prints as base-10 by default
	var out bytes.Buffer
	if err = process(tablePath, "", &out); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "20317\n" {
		t.Fatalf("unexpected output %q", got)
	}

	expect := map[string][]byte{
		"bb2.bin": {0x4f, 0x5d},
		"bb2.b16": []byte("4F5D"),
		"bb2.b2":  []byte("100111101011101"),
		"bb2.b36": []byte("FOD"),
	}
	for name, want := range expect {
		outPath := path.Join(dir, name)
		if err = process(tablePath, outPath, &out); err != nil {
			t.Fatal(err)
		}
		got, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s holds %q, want %q", name, got, want)
		}

		// ...and each converts back to the table
		out.Reset()
		if err = process(outPath, "", &out); err != nil {
			t.Fatal(err)
		}
		if out.String() != bb2Table+"\n" {
			t.Fatalf("%s decoded to %q", name, out.String())
		}
	}
}

func TestProcessErrors(t *testing.T) {
	var out bytes.Buffer
	if err := process("12x", "", &out); !errors.Is(err, tme.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if err := process("notes.txt", "", &out); !errors.Is(err, tme.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if err := process("20317", "out.png", &out); !errors.Is(err, tme.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatal("nothing should be written on error")
	}
}

func TestLoggingFlags(t *testing.T) {
	fset := flag.NewFlagSet("tme", flag.ContinueOnError)
	initLogging(fset)

	if err := fset.Parse([]string{"-v", "2", "20317"}); err != nil {
		t.Fatal(err)
	}
	if v := fset.Lookup("v"); v == nil || v.Value.String() != "2" {
		t.Fatal("-v should be settable from the command line")
	}
	if fset.Lookup("logtostderr").Value.String() != "true" {
		t.Fatal("logging should default to stderr")
	}
	if fset.NArg() != 1 || fset.Arg(0) != "20317" {
		t.Fatalf("unexpected args %v", fset.Args())
	}
}

func TestRunScript(t *testing.T) {
	dir, err := os.MkdirTemp("", "junk*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	good := path.Join(dir, "good.py")
	os.WriteFile(good, []byte("import _pytme as tme\nif tme.Count(1) != 64:\n    raise ValueError('bad count')\n"), 0644)
	if err = go_gpython(good); err != nil {
		t.Fatal(err)
	}

	bad := path.Join(dir, "bad.py")
	os.WriteFile(bad, []byte("import _pytme as tme\ntme.FromIndex(-1)\n"), 0644)
	if err = go_gpython(bad); err == nil {
		t.Fatal("expected a script error for a negative index")
	}
}
