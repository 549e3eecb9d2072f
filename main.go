package main

import (
	"trackcrate/cmd"
)

func main() {
	cmd.Execute()
}
