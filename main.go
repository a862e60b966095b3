// Package main is the entry point for the textfuzz CLI.
package main

import "gooze.dev/pkg/textfuzz/cmd"

func main() {
	cmd.Execute()
}
