package main

import (
	"os"

	"github.com/josephlewis42/cai/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
