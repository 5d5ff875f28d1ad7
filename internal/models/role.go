package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Role is the rank a member holds on a list. Ranks are totally ordered and
// compared numerically; the string form is what travels over the wire and
// into the database.
type Role int

const (
	RoleViewer Role = iota
	RoleEditor
	RoleOwner
)

func (role Role) String() string {
	switch role {
	case RoleViewer:
		return "viewer"
	case RoleEditor:
		return "editor"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

func ParseRole(value string) (Role, bool) {
	switch value {
	case "viewer":
		return RoleViewer, true
	case "editor":
		return RoleEditor, true
	case "owner":
		return RoleOwner, true
	default:
		return RoleViewer, false
	}
}

func (role Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(role.String())
}

func (role *Role) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, ok := ParseRole(raw)
	if !ok {
		return fmt.Errorf("unknown role %q", raw)
	}
	*role = parsed
	return nil
}

func (role Role) Value() (driver.Value, error) {
	return role.String(), nil
}

func (role *Role) Scan(value any) error {
	raw, ok := value.(string)
	if !ok {
		if bytes, isBytes := value.([]byte); isBytes {
			raw = string(bytes)
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("scan role: unsupported type %T", value)
	}
	parsed, parsedOK := ParseRole(raw)
	if !parsedOK {
		return fmt.Errorf("scan role: unknown value %q", raw)
	}
	*role = parsed
	return nil
}
