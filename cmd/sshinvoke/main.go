package main

import (
	"os"

	"github.com/yoanbernabeu/sshinvoke/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
