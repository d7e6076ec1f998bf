// Command jobauthd serves the jobAuth engine over HTTP.
//
// Usage:
//
//	jobauthd [serve|migrate|hash-password|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/jobAuth/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jobauthd: %v\n", err)
		os.Exit(1)
	}
}
