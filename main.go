package main

import "event-catalog/cmd"

func main() {
	cmd.Execute()
}
