package main

import "github.com/dmitrijs2005/lifelist/internal/cli"

func main() {
	cli.Execute()
}
