// Command pdfstamp stamps saved element layouts onto PDFs and images and
// inspects documents.
package main

import "github.com/digitorus/pdfstamp/cli"

func main() {
	cli.Main()
}
