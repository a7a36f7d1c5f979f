package main

import "github.com/MeKo-Tech/adaptocr/cmd/adaptocr/cmd"

func main() {
	cmd.Execute()
}
