package main

import "github.com/rovshanmuradov/launchpad-settlement/internal/cli"

func main() {
	cli.Execute()
}
