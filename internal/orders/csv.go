// Package orders reads shipping orders from the sales-platform CSV
// export. One order, one row: multi-item orders are out of scope.
package orders

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/productjump/ship-cli/internal/model"
)

// requiredColumns are the export columns quoting needs. The export has
// many more; everything else is ignored.
var requiredColumns = []string{
	"Name",
	"Id",
	"Shipping Name",
	"Shipping Street",
	"Shipping Address2",
	"Shipping City",
	"Shipping Province",
	"Shipping Zip",
	"Shipping Country",
	"Shipping Phone",
}

// columnIndex maps the header row to column positions, failing on any
// missing required column.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("orders: export is missing column %q", col)
		}
	}
	return idx, nil
}

func rowToOrder(row []string, idx map[string]int) model.Order {
	field := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return model.Order{
		CustomerOrderID: field("Name"),
		PlatformOrderID: field("Id"),
		ShipTo: model.Address{
			Name:       field("Shipping Name"),
			Street1:    field("Shipping Street"),
			Street2:    field("Shipping Address2"),
			City:       field("Shipping City"),
			State:      field("Shipping Province"),
			PostalCode: field("Shipping Zip"),
			Country:    field("Shipping Country"),
			Phone:      field("Shipping Phone"),
		},
	}
}

// ReadAll parses every order row in the export.
func ReadAll(path string) ([]model.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "orders: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // allow variable fields

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "orders: read header")
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var out []model.Order
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "orders: read row")
		}
		out = append(out, rowToOrder(row, idx))
	}
	return out, nil
}

// Find returns the order whose Name matches orderName case-insensitively.
// When the export repeats the order name, the last row wins, matching
// how the export is scanned for single-item orders.
func Find(path, orderName string) (*model.Order, error) {
	all, err := ReadAll(path)
	if err != nil {
		return nil, err
	}

	var found *model.Order
	for i := range all {
		if strings.EqualFold(all[i].CustomerOrderID, orderName) {
			found = &all[i]
		}
	}
	if found == nil {
		return nil, eris.Errorf("orders: order %q not found in %s", orderName, path)
	}
	return found, nil
}
