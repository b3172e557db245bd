// Command atelier runs the studio site's admin dashboard server and its
// maintenance tasks.
//
// Usage:
//
//	atelier [serve] [-config atelier.yaml]
//	atelier seed -file seed.yaml [-replace]
//	atelier backup [-output file.tar.gz]
//	atelier restore -input file.tar.gz [-force]
//	atelier token -subject id [-role admin] [-ttl 1h]
//	atelier version
package main

import (
	"fmt"
	"os"

	"github.com/HerbHall/atelier/internal/version"
)

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		runServe(args)
	case "seed":
		runSeed(args)
	case "backup":
		runBackup(args)
	case "restore":
		runRestore(args)
	case "token":
		runToken(args)
	case "version":
		fmt.Println(version.Info())
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
}
