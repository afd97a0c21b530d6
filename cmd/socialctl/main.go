// Command socialctl is the operator CLI: schema migrations, demo data,
// dev tokens, event tailing and the API server itself.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
