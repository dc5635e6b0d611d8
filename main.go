package main

import "github.com/hearthchat/hearth/cmd"

func main() {
	cmd.Execute()
}
