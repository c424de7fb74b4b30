// Package utils contains small helper functions used across the project.
package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes v to w as tab-indented JSON followed by a newline.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("marshalling JSON: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
