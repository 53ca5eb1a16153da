package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories"
	"github.com/upb/procurement-agent/repositories/codec"
)

// FileCatalog reads the vendor list from a JSON or YAML file on every load
type FileCatalog struct {
	path   string
	format codec.Format
}

// NewFileCatalog creates a file-backed catalog. The encoding follows the file extension.
func NewFileCatalog(path string) (*FileCatalog, error) {
	format, err := codec.FromPath(path)
	if err != nil {
		return nil, err
	}
	return &FileCatalog{path: path, format: format}, nil
}

var _ repositories.VendorCatalog = (*FileCatalog)(nil)

// Load reads the whole file
func (c *FileCatalog) Load(ctx context.Context) ([]models.Vendor, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read vendor catalog: %w", err)
	}
	return decode(c.format, data)
}
