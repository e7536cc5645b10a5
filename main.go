package main

import "github.com/docchat/chatmarkup/cmd"

func main() {
	cmd.Execute()
}
