package main

import "github.com/glucoalert/alertcore/internal/cmd"

func main() {
	cmd.Execute()
}
