package ir

import "fmt"

// GetString returns obj[key] as a string.
func (obj IRObject) GetString(key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("%q is %s, want string", key, TypeName(v))
	}
	return string(s), nil
}

// GetInt returns obj[key] as an int64.
func (obj IRObject) GetInt(key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("missing %q", key)
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, fmt.Errorf("%q is %s, want int", key, TypeName(v))
	}
	return int64(n), nil
}

// GetUint returns obj[key] as a non-negative integer.
func (obj IRObject) GetUint(key string) (uint64, error) {
	n, err := obj.GetInt(key)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("%q must not be negative, got %d", key, n)
	}
	return uint64(n), nil
}

// GetBool returns obj[key] as a bool. A missing key reads as def.
func (obj IRObject) GetBool(key string, def bool) (bool, error) {
	v, ok := obj[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(IRBool)
	if !ok {
		return false, fmt.Errorf("%q is %s, want bool", key, TypeName(v))
	}
	return bool(b), nil
}

// GetArray returns obj[key] as an array. A missing key reads as empty.
func (obj IRObject) GetArray(key string) (IRArray, error) {
	v, ok := obj[key]
	if !ok {
		return nil, nil
	}
	a, ok := v.(IRArray)
	if !ok {
		return nil, fmt.Errorf("%q is %s, want array", key, TypeName(v))
	}
	return a, nil
}
