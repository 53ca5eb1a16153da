package models

// Vendor is an entry of the static vendor catalog.
type Vendor struct {
	Name  string `json:"name" yaml:"name"`
	Price int64  `json:"price" yaml:"price"`
}
