// The main package for the site-importer executable.
package main

import "github.com/draftcms/site-importer/cmd"

func main() {
	cmd.Execute()
}
