package toggler

import "github.com/smazurov/toggler/internal/resource"

// Attribute names.
const (
	AttrBoardName        = "board_name"
	AttrPin              = "pin"
	AttrSerializeToggles = "serialize_toggles"
)

// Config is the validated form of a toggler's attributes.
type Config struct {
	BoardName string
	Pin       string

	// SerializeToggles guards the read-modify-write toggle with a per-pin
	// mutex. Off by default: concurrent toggles of one pin may race.
	SerializeToggles bool
}

// Validate checks the raw attributes and returns the dependencies the host
// must resolve before construction. Checks run in a fixed order and stop at
// the first failure: board_name presence, type, emptiness, then the same for
// pin.
func Validate(attrs resource.Attributes) (required, optional []string, err error) {
	boardName, err := requireString(attrs, AttrBoardName)
	if err != nil {
		return nil, nil, err
	}
	if _, err := requireString(attrs, AttrPin); err != nil {
		return nil, nil, err
	}
	if v, ok := attrs[AttrSerializeToggles]; ok {
		if _, isBool := v.(bool); !isBool {
			return nil, nil, WrongType(AttrSerializeToggles, "bool", v)
		}
	}
	return []string{boardName}, []string{}, nil
}

func requireString(attrs resource.Attributes, attr string) (string, error) {
	v, ok := attrs[attr]
	if !ok {
		return "", MissingAttribute(attr)
	}
	s, ok := v.(string)
	if !ok {
		return "", WrongType(attr, "string", v)
	}
	if s == "" {
		return "", EmptyValue(attr)
	}
	return s, nil
}

// parseConfig reads already validated attributes. Missing or mistyped values
// come back as zero values; no validation happens here.
func parseConfig(attrs resource.Attributes) Config {
	boardName, _ := attrs[AttrBoardName].(string)
	pin, _ := attrs[AttrPin].(string)
	serialize, _ := attrs[AttrSerializeToggles].(bool)
	return Config{
		BoardName:        boardName,
		Pin:              pin,
		SerializeToggles: serialize,
	}
}
