package main

import (
	"WooWithBizimHesap/internal/cli"
)

func main() {
	cli.Execute()
}
