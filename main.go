package main

import "github.com/truewallet/truewallet-go/cmd"

func main() {
	cmd.Execute()
}
