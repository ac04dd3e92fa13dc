package main

import "github.com/KaramelBytes/datavizard/cmd"

func main() {
	cmd.Execute()
}
