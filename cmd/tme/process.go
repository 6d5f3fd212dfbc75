package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fine-structures/tme"
	"github.com/fine-structures/tme/libtme"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// inputSource resolves the format and bytes of an input argument.
// An argument containing a '.' names a file whose suffix selects its format; anything else is base-10 text.
func inputSource(input string) (tme.FormatSpec, []byte, error) {
	if !strings.Contains(input, ".") {
		return tme.SpecDecimal, []byte(input), nil
	}
	spec, err := libtme.ParseSuffix(filepath.Ext(input))
	if err != nil {
		return spec, nil, errors.Wrapf(err, "input %q", input)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return spec, nil, err
	}
	return spec, data, nil
}

// process converts input to the format selected by output's suffix and writes it there.
// With no output, the result is printed to stdout as a table, or as base-10 text when the input is a table.
func process(input, output string, stdout io.Writer) error {
	inSpec, data, err := inputSource(input)
	if err != nil {
		return err
	}
	klog.V(2).Infof("reading %q as %+v", input, inSpec)

	m, err := libtme.Decode(data, inSpec)
	if err != nil {
		return errors.Wrapf(err, "decoding %q", input)
	}

	outSpec := tme.SpecTable
	if inSpec.Format == tme.FormatTable {
		outSpec = tme.SpecDecimal
	}
	if len(output) > 0 {
		outSpec, err = libtme.ParseSuffix(filepath.Ext(output))
		if err != nil {
			return errors.Wrapf(err, "output %q", output)
		}
	}
	klog.V(2).Infof("writing %+v", outSpec)

	body, err := libtme.Encode(m, outSpec)
	if err != nil {
		return err
	}

	if len(output) > 0 {
		return os.WriteFile(output, body, 0644)
	}

	body = append(body, '\n')
	_, err = stdout.Write(body)
	return err
}
