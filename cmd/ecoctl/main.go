package main

import "eco_gateway/internal/cli"

func main() {
	cli.Execute()
}
