package main

import "lingsync/cmd/lsync/root"

func main() {
	root.Execute()
}
