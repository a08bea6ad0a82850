package main

import "github.com/example/themepark-booking/internal/interfaces/cli"

func main() {
	cli.Execute()
}
