package domain

import (
	"dario.cat/mergo"
)

// CloneData returns a shallow copy of src. The result is never nil.
func CloneData(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	if len(src) == 0 {
		return dst
	}

	if err := mergo.Merge(&dst, src); err != nil {
		for k, v := range src {
			dst[k] = v
		}
	}
	return dst
}

// MergeData copies the keys of src into dst, overwriting existing ones.
func MergeData(dst, src map[string]interface{}) (map[string]interface{}, error) {
	if dst == nil {
		dst = make(map[string]interface{}, len(src))
	}
	if len(src) == 0 {
		return dst, nil
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return nil, NewInternalError("failed to merge data", err)
	}
	return dst, nil
}
