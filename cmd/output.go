package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/phone-finder/internal/sheet"
)

// outputFormat picks the format from the flag, then the output path's
// extension, defaulting to JSON.
func outputFormat(flag, path string) (sheet.Format, error) {
	if flag != "" {
		return sheet.ParseFormat(flag)
	}
	if path != "" && path != "-" {
		if f, err := sheet.FormatFromPath(path); err == nil {
			return f, nil
		}
	}
	return sheet.FormatJSON, nil
}

// openOutput returns stdout for "" or "-", otherwise creates path.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output %s", path)
	}
	return f, f.Close, nil
}

// writeResults opens the destination and hands it to write.
func writeResults(path, format string, write func(io.Writer, sheet.Format) error) error {
	f, err := outputFormat(format, path)
	if err != nil {
		return err
	}
	w, closeFn, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := write(w, f); err != nil {
		_ = closeFn()
		return err
	}
	return eris.Wrap(closeFn(), "close output")
}

func sheetOptions() sheet.Options {
	return sheet.Options{NoPhoneText: cfg.Output.NoPhoneText}
}
