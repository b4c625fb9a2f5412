// Package config handles application configuration.
package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FlexBool is a boolean that can be unmarshalled from a YAML boolean,
// a string accepted by strconv.ParseBool, or a number (non-zero is true).
// Deployment tooling tends to stringify flags, so a plain bool field
// would reject otherwise valid configs.
type FlexBool bool

// Bool returns the plain bool value.
func (fb FlexBool) Bool() bool { return bool(fb) }

// UnmarshalYAML implements the yaml.Unmarshaler interface for FlexBool.
func (fb *FlexBool) UnmarshalYAML(value *yaml.Node) error {
	switch value.Tag {
	case "!!bool":
		var b bool
		if err := value.Decode(&b); err != nil {
			return err
		}
		*fb = FlexBool(b)
		return nil
	case "!!str":
		b, err := strconv.ParseBool(value.Value)
		if err != nil {
			return fmt.Errorf("cannot unmarshal string %q into FlexBool", value.Value)
		}
		*fb = FlexBool(b)
		return nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(value.Value, 64)
		if err != nil {
			return fmt.Errorf("cannot unmarshal number %q into FlexBool", value.Value)
		}
		*fb = FlexBool(f != 0)
		return nil
	default:
		return fmt.Errorf("cannot unmarshal %s into FlexBool", value.Tag)
	}
}
