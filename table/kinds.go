package table

import "fmt"

// Kind is the declared type of a field.
type Kind string

const (
	KindNumber    Kind = "number"
	KindText      Kind = "text"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
	KindEnum      Kind = "enum"
)

// KeyKind is the storage type a field takes when used as a key.
// Timestamps and enums are stored as strings.
type KeyKind string

const (
	KeyKindS KeyKind = "S"
	KeyKindN KeyKind = "N"
)

// KeyKind returns the storage key type of k. Bool fields cannot be keys.
func (k Kind) KeyKind() (KeyKind, error) {
	switch k {
	case KindNumber:
		return KeyKindN, nil
	case KindText, KindTimestamp, KindEnum:
		return KeyKindS, nil
	default:
		return "", fmt.Errorf("kind %q cannot be used as a key", k)
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindNumber, KindText, KindBool, KindTimestamp, KindEnum:
		return true
	}
	return false
}

// ParseKind converts a textual kind, as found in schema files, to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "number", "N":
		return KindNumber, nil
	case "text", "string", "S":
		return KindText, nil
	case "bool", "boolean", "BOOL":
		return KindBool, nil
	case "timestamp", "utcdatetime":
		return KindTimestamp, nil
	case "enum":
		return KindEnum, nil
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}
