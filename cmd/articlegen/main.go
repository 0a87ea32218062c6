package main

import "github.com/JakeFAU/articlegen/cmd"

func main() {
	cmd.Execute()
}
