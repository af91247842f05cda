package main

import "github.com/okanehara/travel-approval/cmd"

func main() {
	cmd.Execute()
}
