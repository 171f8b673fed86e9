package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:])
	case "card":
		return runCard(args[2:])
	case "sign":
		return runSign(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "agora"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s keygen [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s card --key-hex <seed-or-key> --name <display-name> [--group <id>]... [--attribution <level>] [--max-queries <n>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --key-hex <seed-or-key> [--body <file>] [--timestamp <rfc3339>] [--out <file>]\n", name)
}
