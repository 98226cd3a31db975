package main

import (
	"github.com/kestrelhq/driveconnect/internal/cli"
)

func main() {
	_ = cli.Execute()
}
