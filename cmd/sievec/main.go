// Command sievec compiles a Sieve script into its binary form and can dump
// the result for inspection.
package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/d--j/go-sieve"
)

func main() {
	output := flag.String("o", "", "Output path of the compiled binary, defaults to the script path with a .svbin suffix")
	extensions := flag.String("extensions", "", "Space-separated list of extensions to make available, empty for all")
	dump := flag.Bool("d", false, "Dump the compiled binary as text instead of saving it")
	hexdump := flag.Bool("x", false, "Hex-dump the compiled binary instead of saving it")
	debug := flag.Bool("debug", false, "Compile with debug information")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: sievec [options] script.sieve")
	}

	var opts []sieve.Option
	if *extensions != "" {
		opts = append(opts, sieve.WithExtensions(strings.Fields(*extensions)...))
	}
	instance, err := sieve.New(opts...)
	if err != nil {
		log.Fatal(err)
	}

	var flags sieve.CompileFlags
	if *debug {
		flags |= sieve.CompileDebug
	}
	errs := sieve.NewErrorHandler(os.Stderr, 40)
	bin, err := instance.CompileFile(flag.Arg(0), "", errs, flags)
	if err != nil {
		log.Fatalf("%s: %d error(s), %d warning(s)", err, errs.ErrorCount(), errs.WarningCount())
	}

	switch {
	case *dump:
		if err := bin.Dump(os.Stdout); err != nil {
			log.Fatal(err)
		}
	case *hexdump:
		if err := bin.Hexdump(os.Stdout); err != nil {
			log.Fatal(err)
		}
	default:
		if err := bin.Save(*output, true); err != nil {
			log.Fatal(err)
		}
	}
}
