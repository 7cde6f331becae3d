package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/guardvault/internal/ir"
)

// Records are stored as canonical JSON so the stored text of a record is
// exactly what its id was hashed over.

func marshalObject(obj ir.IRObject) (string, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func marshalArray(arr ir.IRArray) (string, error) {
	if arr == nil {
		arr = ir.IRArray{}
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// unmarshalObject goes through json.Number, so integers above 2^53 survive.
func unmarshalObject(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal object: %w", err)
	}
	return obj, nil
}

func unmarshalArray(data string) (ir.IRArray, error) {
	if data == "" || data == "[]" {
		return ir.IRArray{}, nil
	}
	var arr ir.IRArray
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		return nil, fmt.Errorf("unmarshal array: %w", err)
	}
	return arr, nil
}
