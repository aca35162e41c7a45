package main

import "github.com/KaramelBytes/assayloom-cli/cmd"

func main() {
	cmd.Execute()
}
