// Command sbchat is a terminal client and diagnostics tool for the store
// assistant chat API.
package main

import "github.com/danitzn/sb-frontend/internal/commands"

func main() {
	commands.Execute()
}
