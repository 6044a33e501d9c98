package domain

import dErrors "onboarding-gateway/pkg/domain-errors"

// ActorType classifies who caused a workflow event.
type ActorType string

const (
	ActorPlatform ActorType = "platform"
	ActorUser     ActorType = "user"
	ActorSystem   ActorType = "system"
)

var validActorTypes = map[ActorType]bool{
	ActorPlatform: true,
	ActorUser:     true,
	ActorSystem:   true,
}

// IsValid checks if the actor type is one of the supported enum values.
func (t ActorType) IsValid() bool { return validActorTypes[t] }

// ParseActorType constructs an ActorType from external input.
func ParseActorType(s string) (ActorType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "actor type cannot be empty")
	}
	t := ActorType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid actor type")
	}
	return t, nil
}

// Actor is the identity attached to audit-relevant events. ID is free-form
// (staff user id, service name) because actors span humans and systems.
type Actor struct {
	Type ActorType
	ID   string
	// Device is a display name parsed from the User-Agent header for human
	// actors; empty for system actors.
	Device string
}

// SystemActor is the actor recorded on orchestrator-initiated events.
func SystemActor() Actor { return Actor{Type: ActorSystem, ID: "orchestrator"} }

// PlatformActor is the actor recorded on platform callback events.
func PlatformActor(source string) Actor { return Actor{Type: ActorPlatform, ID: source} }
