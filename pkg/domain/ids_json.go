package domain

import "github.com/google/uuid"

// Text marshaling for the typed IDs. Defined types over uuid.UUID do not
// inherit its methods, and without these the JSON encoder would emit raw
// 16-byte arrays.

func (id WorkflowID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ApplicantID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id QuoteID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id FormInstanceID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id EventID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id TimerID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }

func (id *WorkflowID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = WorkflowID(parsed)
	return nil
}

func (id *ApplicantID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = ApplicantID(parsed)
	return nil
}

func (id *QuoteID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = QuoteID(parsed)
	return nil
}

func (id *FormInstanceID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = FormInstanceID(parsed)
	return nil
}

func (id *EventID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = EventID(parsed)
	return nil
}

func (id *TimerID) UnmarshalText(b []byte) error {
	parsed, err := uuid.Parse(string(b))
	if err != nil {
		return err
	}
	*id = TimerID(parsed)
	return nil
}
