package main

import (
	"github.com/efarmer/subsidy/cmd/subsidyctl/commands"
)

func main() {
	commands.Execute()
}
