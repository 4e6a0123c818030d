// Command sieve-test runs a Sieve script against a message file and prints
// the actions the script would perform, without committing anything.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/d--j/go-sieve"
	"github.com/d--j/go-sieve/mailmsg"
)

func main() {
	from := flag.String("f", "", "Envelope sender address")
	to := flag.String("r", "", "Envelope recipient address")
	extensions := flag.String("extensions", "", "Space-separated list of extensions to make available, empty for all")
	dump := flag.Bool("d", false, "Dump the compiled binary before running it")
	flag.Parse()
	if flag.NArg() != 2 {
		log.Fatal("usage: sieve-test [options] script.sieve message.eml")
	}

	var opts []sieve.Option
	if *extensions != "" {
		opts = append(opts, sieve.WithExtensions(strings.Fields(*extensions)...))
	}
	instance, err := sieve.New(opts...)
	if err != nil {
		log.Fatal(err)
	}

	errs := sieve.NewErrorHandler(os.Stderr, 40)
	bin, err := instance.CompileFile(flag.Arg(0), "", errs, 0)
	if err != nil {
		log.Fatalf("compile failed: %s", err)
	}
	if *dump {
		if err := bin.Dump(os.Stdout); err != nil {
			log.Fatal(err)
		}
	}

	f, err := os.Open(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	var envelope mailmsg.Envelope
	envelope.From = *from
	if *to != "" {
		envelope.To = []string{*to}
	}
	msg, err := mailmsg.Parse(f, envelope)
	if err != nil {
		log.Fatal(err)
	}

	env := &sieve.ScriptEnv{User: *to, PostmasterAddress: "postmaster@localhost"}
	status := instance.Test(context.Background(), bin, msg, env, errs, os.Stdout)
	if status != sieve.StatusOK {
		log.Fatalf("execution failed: %s", status)
	}
}
