package cli

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/digitorus/pdfstamp/document"
	"github.com/digitorus/pdfstamp/seal"
)

func InspectCommand() {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)

	inspectFlags.Usage = func() {
		fmt.Printf("Usage: %s inspect <input>\n\n", os.Args[0])
		fmt.Println("Show the type, page geometry, fonts and signatures of a PDF or image")
	}

	if err := inspectFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse inspect flags: %v", err)
	}
	if inspectFlags.NArg() != 1 {
		inspectFlags.Usage()
		osExit(1)
		return
	}

	if err := Inspect(os.Stdout, inspectFlags.Arg(0)); err != nil {
		log.Println(err)
		osExit(1)
	}
}

// Inspect writes a summary of the file at path to w.
func Inspect(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := document.Load(filepath.Base(path), data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "File:  %s\n", doc.Name)
	fmt.Fprintf(w, "Type:  %s\n", doc.MIME)
	fmt.Fprintf(w, "Pages: %d\n\n", doc.NumPages())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSIZE\tDISPLAY\tROTATE\tUNIT")
	for _, p := range doc.Pages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.Number, p.NativeSize(), p.DisplaySize(), p.Rotate, p.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if fonts := doc.Fonts(); len(fonts) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FONT\tTYPE\tPAGES")
		for _, f := range fonts {
			pages := make([]string, len(f.Pages))
			for i, n := range f.Pages {
				pages[i] = fmt.Sprint(n)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.BaseFont, f.Subtype, strings.Join(pages, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if doc.Reader() == nil {
		return nil
	}
	return inspectSignatures(w, doc)
}

// inspectSignatures lists the signature fields and checks the integrity of
// each; certificate chains are not validated.
func inspectSignatures(w io.Writer, doc *document.Document) error {
	data := doc.Data
	var tw *tabwriter.Writer
	for sig := range seal.Signatures(doc.Reader()) {
		if tw == nil {
			fmt.Fprintln(w)
			tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SIGNATURE\tSIGNER\tINTEGRITY\tCOVERS")
		}
		signer, integrity := sig.Name, "ok"
		if cert, err := sig.Verify(bytes.NewReader(data), nil); err != nil {
			integrity = "FAILED: " + err.Error()
		} else if signer == "" {
			signer = cert.Subject.CommonName
		}
		covers := "whole file"
		if !sig.Covers(int64(len(data))) {
			covers = "earlier revision"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sig.Field, signer, integrity, covers)
	}
	if tw == nil {
		return nil
	}
	return tw.Flush()
}
