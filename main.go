package main

import "github.com/jmehdipour/messaging-gateway/cmd"

func main() {
	cmd.Execute()
}
