package meta

import "encoding/json"

func GetString(metadata map[string]any, key string) string {
	if value, ok := metadata[key]; ok {
		text, _ := value.(string)
		return text
	}
	return ""
}

// Encode marshals metadata to JSON; nil encodes as an empty object.
func Encode(metadata map[string]any) (string, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode unmarshals JSON metadata; empty input yields an empty map.
func Decode(metaJSON string) (map[string]any, error) {
	if metaJSON == "" {
		return map[string]any{}, nil
	}
	out := map[string]any{}
	if err := json.Unmarshal([]byte(metaJSON), &out); err != nil {
		return nil, err
	}
	return out, nil
}
