package main

import "wealthtracker/cmd/client/cmd"

func main() {
	cmd.Execute()
}
