package main

import "github.com/huanfeng/ownerkit/cmd"

func main() {
	cmd.Execute()
}
