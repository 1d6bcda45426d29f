package main

import "mailwatch/cmd"

func main() {
	cmd.Execute()
}
