package docstore

import (
	"fmt"
	"strconv"
	"strings"
)

// setPath assigns value at a dotted path such as "todos.t1.u1" or
// "dinners.3" inside a decoded JSON document.
func setPath(doc map[string]any, path string, value any) error {
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return fmt.Errorf("invalid path %q", path)
		}
	}
	if segs[0] == "id" {
		return fmt.Errorf("path %q: id is read-only", path)
	}
	if _, err := strconv.Atoi(segs[0]); err == nil {
		return fmt.Errorf("path %q: document root is not an array", path)
	}
	// The root is an object, so assign updates doc in place.
	if _, err := assign(doc, segs, value); err != nil {
		return fmt.Errorf("path %q: %w", path, err)
	}
	return nil
}

// assign returns node with value written at segs, replacing node when it
// has the wrong shape for the next segment.
func assign(node any, segs []string, value any) (any, error) {
	if len(segs) == 0 {
		return value, nil
	}
	seg := segs[0]

	if idx, err := strconv.Atoi(seg); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("negative index %d", idx)
		}
		arr, _ := node.([]any)
		for len(arr) <= idx {
			arr = append(arr, nil)
		}
		child, err := assign(arr[idx], segs[1:], value)
		if err != nil {
			return nil, err
		}
		arr[idx] = child
		return arr, nil
	}

	obj, ok := node.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	child, err := assign(obj[seg], segs[1:], value)
	if err != nil {
		return nil, err
	}
	obj[seg] = child
	return obj, nil
}
