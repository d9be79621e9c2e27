package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/feichai0017/slide-deidentifier/internal/isyntax"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	app := newApp(log)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(log logger.Logger) *cli.App {
	return &cli.App{
		Name:      "deidentify",
		Usage:     "remove the specimen barcode and label image from an iSyntax slide",
		ArgsUsage: "INPUT_IMG",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "output-img",
				Aliases: []string{"o"},
				Usage:   "output image path (must not already exist)",
			},
			&cli.BoolFlag{
				Name:    "inplace",
				Aliases: []string{"i"},
				Usage:   "deidentify the image in-place",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("exactly one input image path is required", 2)
			}
			output := c.Path("output-img")
			inplace := c.Bool("inplace")
			if inplace == (output != "") {
				return cli.Exit("exactly one of --output-img or --inplace is required", 2)
			}

			input := c.Args().First()
			if inplace {
				return deidentifyInPlace(c.Context, log, input)
			}
			return deidentifyToFile(c.Context, log, input, output)
		},
	}
}

// deidentifyToFile streams the doctored slide into a fresh output
// file. The destination is not created until the header has been
// validated and rewritten, so a failed run leaves nothing behind.
func deidentifyToFile(ctx context.Context, log logger.Logger, input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	source := isyntax.NewReaderSource(in, isyntax.DefaultChunkSize)
	res, err := isyntax.Deidentify(ctx, source, isyntax.Options{})
	if err != nil {
		return err
	}

	out, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	written, err := isyntax.Copy(ctx, out, res.Stream)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	log.Info("Slide deidentified",
		logger.String("input", input),
		logger.String("output", output),
		logger.Int64("bytes", written),
		logger.Int("headerSize", res.HeaderSize),
	)
	return nil
}

// deidentifyInPlace rewrites only the header region of the input file.
// The rest of the file is never touched, so gigabytes of pixel data
// stay where they are.
func deidentifyInPlace(ctx context.Context, log logger.Logger, input string) error {
	f, err := os.OpenFile(input, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	source := isyntax.NewReaderSource(f, isyntax.DefaultChunkSize)
	res, err := isyntax.Deidentify(ctx, source, isyntax.Options{SingleHeaderChunk: true})
	if err != nil {
		return err
	}

	// The first chunk is the rewritten header region; nothing is
	// written back before it has fully validated in memory.
	header, err := res.Stream.Next(ctx)
	if err != nil {
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.Write(header); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	log.Info("Slide deidentified in-place",
		logger.String("input", input),
		logger.Int("headerSize", res.HeaderSize),
	)
	return nil
}
