package main

import (
	"github.com/ledgerlens/defi-insight/cmd"
)

func main() {
	cmd.Execute()
}
