// Command capstan is the Capstan operator CLI.
package main

import "github.com/GoCodeAlone/capstan/internal/cli"

func main() {
	cli.Execute()
}
