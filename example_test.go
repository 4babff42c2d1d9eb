package pdfstamp_test

import (
	"context"
	"fmt"
	"log"

	"github.com/digitorus/pdfstamp"
	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/internal/testpdf"
)

// ExampleSession_Export demonstrates the flow for stamping a document.
func ExampleSession_Export() {
	ctx := context.Background()
	s := pdfstamp.New()
	defer s.Close()

	// 1. Open the document
	if err := s.Open(ctx, "contract.pdf", testpdf.Letter(2)); err != nil {
		log.Fatal(err)
	}

	// 2. Place a date on page 2
	if err := s.Render(ctx, 2); err != nil {
		log.Fatal(err)
	}
	ed := s.Editor()
	if _, err := ed.ActivateTool(element.Date); err != nil {
		log.Fatal(err)
	}
	if _, err := ed.Place(geometry.Point{X: 450, Y: 700}); err != nil {
		log.Fatal(err)
	}

	// 3. Export
	res, err := s.Export(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s: %s, pages %v, %d element(s)\n", res.Name, res.MIME, res.Pages, res.Drawn)

	// Output:
	// contract-signed.pdf: application/pdf, pages [2], 1 element(s)
}
