package main

import "ragkit/internal/cli"

func main() {
	cli.Execute()
}
