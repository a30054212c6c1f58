package main

import "github.com/octobrain/octobrain/cmd/octobrain/cli"

func main() {
	cli.Execute()
}
