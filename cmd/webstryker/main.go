// Package main is the entry point for the webstryker binary.
package main

import "github.com/strykerlabs/webstryker/cmd"

func main() {
	cmd.Execute()
}
