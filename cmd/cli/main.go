package main

import (
	"github.com/thermognosis/thermopulse/pkg/cli"
)

func main() {
	cli.Execute()
}
