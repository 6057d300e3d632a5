package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dd0wney/cluso-sketch/pkg/hctl"
	"github.com/dd0wney/cluso-sketch/pkg/observations"
)

func main() {
	as := flag.String("as", "", "Encode as Attractor, FixedPoint or TimeSeries instead of the file's type")
	each := flag.Bool("each", false, "Print one formula per observation instead of the combined property")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: encode-observations [flags] observations.txt")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(os.Stdout, flag.Arg(0), *as, *each); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, path, as string, each bool) error {
	list, err := observations.Load(path)
	if err != nil {
		return err
	}

	var formulas []hctl.Formula
	if each {
		if formulas, err = observations.EncodeAll(list); err != nil {
			return err
		}
	} else {
		t := list.Type
		if as != "" {
			if t, err = observations.ParseType(as); err != nil {
				return err
			}
		}
		f, err := observations.EncodeListAs(list, t)
		if err != nil {
			return err
		}
		formulas = []hctl.Formula{f}
	}

	for _, f := range formulas {
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}
	return nil
}
