package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"github.com/nishad/srafetch/internal/errors"
)

// Pigz compresses files with the external pigz program at a fixed level.
type Pigz struct {
	Bin    string
	Level  int
	Output Output
}

// Compress implements Compressor.
func (p *Pigz) Compress(ctx context.Context, dir string, files []string) error {
	const op errors.Op = "tools.Compress"

	if len(files) == 0 {
		return nil
	}
	args := []string{fmt.Sprintf("-%d", p.Level)}
	for _, f := range files {
		args = append(args, relativeTo(dir, f))
	}

	cmd := exec.CommandContext(ctx, p.Bin, args...)
	cmd.Dir = dir
	if err := p.Output.run(cmd); err != nil {
		return errors.E(op, errors.KindConversion, err, fmt.Sprintf("%s failed", p.Bin))
	}
	return nil
}

// PgzipCompressor compresses in-process with parallel gzip blocks. It is
// used when pigz is not installed and produces the same name.gz layout.
type PgzipCompressor struct {
	Level int
}

// Compress implements Compressor.
func (p *PgzipCompressor) Compress(ctx context.Context, dir string, files []string) error {
	const op errors.Op = "tools.Compress"

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return errors.E(op, errors.KindConversion, err)
		}
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		if err := p.compressFile(path); err != nil {
			return errors.E(op, errors.KindConversion, err, fmt.Sprintf("failed to compress %s", path))
		}
	}
	return nil
}

func (p *PgzipCompressor) compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	gzPath := path + ".gz"
	out, err := os.Create(gzPath)
	if err != nil {
		return err
	}

	zw, err := pgzip.NewWriterLevel(out, p.Level)
	if err != nil {
		out.Close()
		os.Remove(gzPath)
		return err
	}
	zw.Name = filepath.Base(path)

	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(gzPath)
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(gzPath)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(gzPath)
		return err
	}

	in.Close()
	return os.Remove(path)
}
