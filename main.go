package main

import "discord-trigger/cmd"

func main() {
	cmd.Execute()
}
