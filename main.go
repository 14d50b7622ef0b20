package main

import "github.com/NamanBalaji/segfetch/cmd"

func main() {
	cmd.Execute()
}
