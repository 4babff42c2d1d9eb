package cli

import (
	"context"
	"crypto"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/digitorus/pdfstamp"
	"github.com/digitorus/pdfstamp/config"
	"github.com/digitorus/pdfstamp/element"
	"github.com/digitorus/pdfstamp/export"
	"github.com/digitorus/pdfstamp/geometry"
	"github.com/digitorus/pdfstamp/seal"
)

// ExportOptions holds the inputs of the export command.
type ExportOptions struct {
	Input    string // PDF or image
	Elements string // JSON element list
	Output   string

	ConfigPath string
	Visual     string // WxH surface size the element coordinates refer to
	SignerName string

	// Approval signature; all optional.
	CertPath  string
	KeyPath   string
	ChainPath string
	TSA       string
	Reason    string
	Location  string
	// Revocation embeds OCSP/CRL status of the signing chain.
	Revocation bool
}

func ExportCommand() {
	var o ExportOptions
	exportFlags := flag.NewFlagSet("export", flag.ExitOnError)

	exportFlags.StringVar(&o.ConfigPath, "config", "", "Path to a TOML configuration file")
	exportFlags.StringVar(&o.Visual, "visual", "", "Surface size (WxH) the element coordinates were measured on; defaults to the page display size")
	exportFlags.StringVar(&o.SignerName, "signer", "", "Value substituted for {{Name}} in text elements")
	exportFlags.StringVar(&o.CertPath, "cert", "", "Certificate used to seal PDF output")
	exportFlags.StringVar(&o.KeyPath, "key", "", "Private key of the sealing certificate")
	exportFlags.StringVar(&o.ChainPath, "chain", "", "PEM file with the issuer chain")
	exportFlags.StringVar(&o.TSA, "tsa", "", "URL for Time-Stamp Authority")
	exportFlags.StringVar(&o.Reason, "reason", "", "Reason for signing")
	exportFlags.StringVar(&o.Location, "location", "", "Location of the signatory")
	exportFlags.BoolVar(&o.Revocation, "revocation", false, "Embed OCSP/CRL revocation status of the signing chain")

	exportFlags.Usage = func() {
		fmt.Printf("Usage: %s export [options] <input> <elements.json> <output>\n\n", os.Args[0])
		fmt.Println("Stamp the elements of a saved layout onto a PDF or image")
		fmt.Println("\nOptions:")
		exportFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s export contract.pdf layout.json contract-signed.pdf\n", os.Args[0])
		fmt.Printf("  %s export -visual 600x776 -cert cert.crt -key key.key contract.pdf layout.json out.pdf\n", os.Args[0])
	}

	if err := exportFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse export flags: %v", err)
	}
	if exportFlags.NArg() != 3 {
		exportFlags.Usage()
		osExit(1)
		return
	}
	o.Input, o.Elements, o.Output = exportFlags.Arg(0), exportFlags.Arg(1), exportFlags.Arg(2)

	if err := Export(context.Background(), o); err != nil {
		log.Println(err)
		osExit(1)
	}
}

// Export runs the export command.
func Export(ctx context.Context, o ExportOptions) error {
	cfg := config.Default()
	if o.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(o.ConfigPath); err != nil {
			return err
		}
	}
	// The output path is explicit here.
	cfg.Output.Dir = ""
	logger := cfg.Log.Logger(os.Stderr)

	opts, err := pdfstamp.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if o.SignerName != "" {
		opts = append(opts, pdfstamp.WithExportOptions(export.WithSignerName(o.SignerName)))
	}
	if o.CertPath != "" || o.KeyPath != "" {
		signer, err := loadSigner(o)
		if err != nil {
			return err
		}
		opts = append(opts, pdfstamp.WithSeal(signer))
	}

	s := pdfstamp.New(opts...)
	defer s.Close()

	data, err := os.ReadFile(o.Input)
	if err != nil {
		return err
	}
	if err := s.Open(ctx, filepath.Base(o.Input), data); err != nil {
		return err
	}

	f, err := os.Open(o.Elements)
	if err != nil {
		return err
	}
	els, err := element.Decode(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("elements %s: %w", o.Elements, err)
	}
	if err := s.Editor().Restore(els); err != nil {
		return err
	}

	if o.Visual != "" {
		size, err := geometry.ParseSize(o.Visual)
		if err != nil {
			return err
		}
		for n := 1; n <= s.Document().NumPages(); n++ {
			if err := s.SetVisualSize(n, size); err != nil {
				return err
			}
		}
	}

	start := time.Now()
	res, err := s.Export(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(o.Output, res.Data, 0o644); err != nil {
		return err
	}
	logger.Info("exported",
		slog.String("output", o.Output),
		slog.String("mime", res.MIME),
		slog.Int("elements", res.Drawn),
		slog.Bool("sealed", res.Sealed),
		slog.Duration("took", time.Since(start)))
	if res.Warning != nil {
		logger.Warn(res.Warning.Error())
	}
	return nil
}

func loadSigner(o ExportOptions) (*seal.Signer, error) {
	if o.CertPath == "" || o.KeyPath == "" {
		return nil, errors.New("sealing needs both -cert and -key")
	}
	cert, key, chain, err := LoadCertificatesAndKey(o.CertPath, o.KeyPath, o.ChainPath)
	if err != nil {
		return nil, err
	}
	signer := &seal.Signer{
		Certificate: cert,
		Key:         key,
		Chain:       chain,
		Digest:      crypto.SHA256,
		Name:        o.SignerName,
		Reason:      o.Reason,
		Location:    o.Location,
		TSA:         seal.TSA{URL: o.TSA},
	}
	if o.Revocation {
		signer.Revocation = &seal.Revocation{OCSP: true, CRL: true}
	}
	return signer, nil
}
