package stock

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Intent asks for the stock of one product to be set to an absolute quantity.
// It has no identity of its own, so applying it more than once is harmless.
type Intent struct {
	ProductID   int `json:"ProductId"`
	NewQuantity int `json:"NewQuantity"`
}

// wireIntent distinguishes absent fields from zero values.
type wireIntent struct {
	ProductID   *int `json:"ProductId"`
	NewQuantity *int `json:"NewQuantity"`
}

// DecodeError reports a message value that is not a valid intent.
type DecodeError struct {
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode stock intent: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeIntent serializes an intent to its JSON wire form.
func EncodeIntent(intent Intent) ([]byte, error) {
	return json.Marshal(intent)
}

// DecodeIntent parses a message value. Both fields must be present and be
// integers; unknown fields are ignored.
func DecodeIntent(data []byte) (Intent, error) {
	var w wireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return Intent{}, &DecodeError{Payload: data, Err: err}
	}
	if w.ProductID == nil {
		return Intent{}, &DecodeError{Payload: data, Err: errors.New("missing ProductId")}
	}
	if w.NewQuantity == nil {
		return Intent{}, &DecodeError{Payload: data, Err: errors.New("missing NewQuantity")}
	}
	return Intent{ProductID: *w.ProductID, NewQuantity: *w.NewQuantity}, nil
}
