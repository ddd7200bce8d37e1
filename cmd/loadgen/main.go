// Command loadgen drives Harrier with synthetic claims and applications and
// reports the tier distribution and throughput.
//
// Usage:
//
//	go run ./cmd/loadgen claims --count 10000 --url http://localhost:8080
//	go run ./cmd/loadgen applications --count 5000 --local
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
