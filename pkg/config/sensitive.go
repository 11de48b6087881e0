package config

import "encoding/json"

// SensitiveString holds a secret value that must never be logged or
// serialized in the clear: String and MarshalJSON both redact it,
// Value returns the real contents for the code paths that need it
// (e.g. dialing a client).
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s SensitiveString) Value() string { return string(s) }

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}
