// Package catalog loads the static vendor catalog from a file or an S3 object.
package catalog

import (
	"fmt"

	"github.com/upb/procurement-agent/models"
	"github.com/upb/procurement-agent/repositories/codec"
)

// decode parses and validates a catalog document: a list of {name, price}
func decode(format codec.Format, data []byte) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := codec.Unmarshal(format, data, &vendors); err != nil {
		return nil, fmt.Errorf("decode vendor catalog: %w", err)
	}
	for i, v := range vendors {
		if v.Name == "" {
			return nil, fmt.Errorf("vendor catalog entry %d: name is required", i)
		}
		if v.Price < 0 {
			return nil, fmt.Errorf("vendor catalog entry %d (%s): price must be non-negative", i, v.Name)
		}
	}
	if vendors == nil {
		vendors = []models.Vendor{}
	}
	return vendors, nil
}
