package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matzehuels/eqgraph/pkg/errors"
	"github.com/matzehuels/eqgraph/pkg/matrix"
	"github.com/matzehuels/eqgraph/pkg/palette"
)

// Write stores the matrix and palette files of res. Both are rendered in
// memory and staged as temporary files before either is renamed into place,
// so a failure leaves neither file behind.
func Write(res *Result, matrixPath, palettePath string) error {
	if res == nil || res.Reduction == nil {
		return errors.New(errors.ErrCodeInternal, "write: no reduction")
	}

	var mbuf, pbuf bytes.Buffer
	if err := matrix.Write(&mbuf, res.Reduction.Matrix); err != nil {
		return fmt.Errorf("format matrix: %w", err)
	}
	if err := palette.Write(&pbuf, res.Reduction.Palette); err != nil {
		return fmt.Errorf("format palette: %w", err)
	}

	mtmp, err := stage(matrixPath, mbuf.Bytes())
	if err != nil {
		return err
	}
	ptmp, err := stage(palettePath, pbuf.Bytes())
	if err != nil {
		os.Remove(mtmp)
		return err
	}

	if err := os.Rename(mtmp, matrixPath); err != nil {
		os.Remove(mtmp)
		os.Remove(ptmp)
		return fmt.Errorf("write %s: %w", matrixPath, err)
	}
	if err := os.Rename(ptmp, palettePath); err != nil {
		os.Remove(ptmp)
		os.Remove(matrixPath)
		return fmt.Errorf("write %s: %w", palettePath, err)
	}
	return nil
}

// WriteFile writes data to path through a temporary file in the same
// directory.
func WriteFile(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func stage(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return f.Name(), nil
}
