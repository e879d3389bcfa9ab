package main

import "github.com/atelierdevis/devis-gateway/cmd"

func main() {
	cmd.Execute()
}
