// Command callsummarizer analyzes recorded calls.
//
// Usage:
//
//	callsummarizer analyze <file> [--customer name] [--format json|yaml] [--out dir]
//	callsummarizer serve [--addr :8080]
//	callsummarizer history <customer>
//	callsummarizer config show
package main

import (
	"fmt"
	"os"

	"github.com/vijay-svsk/call-summarizer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
