package cli

import (
	"fmt"
	"os"
)

var osExit = os.Exit

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  export   Stamp elements onto a PDF or image")
	fmt.Println("  inspect  Show document type, pages and fonts")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}

// Main dispatches os.Args to a command.
func Main() {
	if len(os.Args) < 2 {
		Usage()
		return
	}

	switch os.Args[1] {
	case "export":
		ExportCommand()
	case "inspect":
		InspectCommand()
	case "-h", "--help", "help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		Usage()
	}
}
