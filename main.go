// Package main is the entry point for the sqlgate MCP server.
package main

import (
	"github.com/sqlgate/sqlgate/cmd"
)

func main() {
	cmd.Execute()
}
