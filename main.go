package main

import "github.com/MarcGrol/poststudio/cmd"

func main() {
	cmd.Execute()
}
