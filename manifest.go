package sitegen

// DecodeManifest turns the root document Value into the ordered list of
// build actions it describes (§6 "Manifest (input)"). The root must be a
// sequence of mappings; each mapping's `type` field selects how the rest of
// it is decoded.
func DecodeManifest(doc Value) ([]BuildAction, error) {
	if doc.Kind != KindSequence {
		return nil, &ManifestUnexpectedTypeError{Value: "root is not a sequence"}
	}
	actions := make([]BuildAction, 0, len(doc.Sequence))
	for i, entry := range doc.Sequence {
		action, err := decodeAction(entry)
		if err != nil {
			return nil, &ManifestAtEntryError{Index: i, Inner: err}
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func decodeAction(entry Value) (BuildAction, error) {
	if entry.Kind != KindMapping {
		return nil, &ManifestUnexpectedTypeError{Value: "entry is not a mapping"}
	}
	typeValue, ok := entry.Mapping.Get("type")
	if !ok || typeValue.Kind != KindString {
		return nil, &ManifestMissingKeyError{Key: "type"}
	}
	switch typeValue.Str {
	case "copy":
		return decodeCopyAction(entry.Mapping)
	case "build":
		return decodeBuildAction(entry.Mapping)
	case "build-multiple":
		return decodeBuildMultipleAction(entry.Mapping)
	default:
		return nil, &ManifestUnexpectedTypeError{Value: typeValue.Str}
	}
}

func decodeCopyAction(m *OrderedMap) (BuildAction, error) {
	from, err := requireString(m, "from")
	if err != nil {
		return nil, err
	}
	to, err := requireString(m, "to")
	if err != nil {
		return nil, err
	}
	return CopyFilesAction{From: from, To: to}, nil
}

func decodeBuildAction(m *OrderedMap) (BuildAction, error) {
	input, err := requireString(m, "input")
	if err != nil {
		return nil, err
	}
	output, err := requireString(m, "output")
	if err != nil {
		return nil, err
	}
	params := NewOrderedMap()
	if paramsValue, ok := m.Get("params"); ok {
		if paramsValue.Kind != KindMapping {
			return nil, &ManifestEntryNotHashError{Key: "params", Pos: 0}
		}
		params = paramsValue.Mapping
	}
	return BuildPageAction{Input: input, Output: output, Params: params}, nil
}

func decodeBuildMultipleAction(m *OrderedMap) (BuildAction, error) {
	defaultValue, ok := m.Get("default")
	defaultParams := NewOrderedMap()
	if ok {
		if defaultValue.Kind != KindMapping {
			return nil, &ManifestEntryNotHashError{Key: "default", Pos: 0}
		}
		defaultParams = defaultValue.Mapping
	}

	withValue, ok := m.Get("with")
	if !ok {
		return nil, &ManifestMissingKeyError{Key: "with"}
	}
	if withValue.Kind != KindSequence {
		return nil, &ManifestKeyNotArrayError{Key: "with"}
	}

	groupings := make([]MatrixGrouping, 0, len(withValue.Sequence))
	for pos, groupingValue := range withValue.Sequence {
		if groupingValue.Kind != KindMapping {
			return nil, &ManifestEntryNotHashError{Key: "with", Pos: pos}
		}
		grouping, err := decodeGrouping(groupingValue.Mapping, pos)
		if err != nil {
			return nil, err
		}
		groupings = append(groupings, grouping)
	}

	include, err := optionalString(m, "include")
	if err != nil {
		return nil, err
	}
	exclude, err := optionalString(m, "exclude")
	if err != nil {
		return nil, err
	}

	return BuildMultiplePagesAction{
		DefaultParams: defaultParams,
		Groupings:     groupings,
		Include:       include,
		Exclude:       exclude,
	}, nil
}

func decodeGrouping(m *OrderedMap, pos int) (MatrixGrouping, error) {
	var grouping MatrixGrouping

	if filesValue, ok := m.Get("files"); ok {
		if filesValue.Kind != KindSequence {
			return grouping, &ManifestKeyNotArrayError{Key: "files"}
		}
		for i, fv := range filesValue.Sequence {
			if fv.Kind != KindString {
				return grouping, &ManifestEntryNotStringError{Key: "files", Pos: i}
			}
			grouping.Files = append(grouping.Files, fv.Str)
		}
	}

	if paramsValue, ok := m.Get("params"); ok {
		if paramsValue.Kind != KindSequence {
			return grouping, &ManifestKeyNotArrayError{Key: "params"}
		}
		for i, pv := range paramsValue.Sequence {
			if pv.Kind != KindMapping {
				return grouping, &ManifestEntryNotHashError{Key: "params", Pos: i}
			}
			grouping.Params = append(grouping.Params, pv.Mapping)
		}
	}

	if mappingValue, ok := m.Get("mapping"); ok {
		if mappingValue.Kind != KindMapping {
			return grouping, &ManifestEntryNotHashError{Key: "mapping", Pos: pos}
		}
		grouping.Mapping = mappingValue.Mapping
	}

	if flattenValue, ok := m.Get("flatten"); ok {
		if flattenValue.Kind != KindString {
			return grouping, &ManifestEntryNotStringError{Key: "flatten", Pos: pos}
		}
		flatten := flattenValue.Str
		grouping.Flatten = &flatten
	}

	return grouping, nil
}

func requireString(m *OrderedMap, key string) (string, error) {
	v, ok := m.Get(key)
	if !ok {
		return "", &ManifestMissingKeyError{Key: key}
	}
	if v.Kind != KindString {
		return "", &ManifestEntryNotStringError{Key: key, Pos: 0}
	}
	return v.Str, nil
}

func optionalString(m *OrderedMap, key string) (*string, error) {
	v, ok := m.Get(key)
	if !ok {
		return nil, nil
	}
	if v.Kind != KindString {
		return nil, &ManifestEntryNotStringError{Key: key, Pos: 0}
	}
	s := v.Str
	return &s, nil
}
