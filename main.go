package main

import "github.com/Mohsinsiddi/w3pay/cmd"

func main() {
	cmd.Execute()
}
