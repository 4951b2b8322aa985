package workflow

import (
	"context"
	"fmt"
)

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a status configuration for the given status
	Configure(status Status) StatusConfiguration

	// PermitFromAnyActive allows the target from every non-terminal status
	PermitFromAnyActive(toStatus Status) StateMachineBuilder

	// Forbid rejects from -> to with the given error before the table is consulted
	Forbid(fromStatus, toStatus Status, err error) StateMachineBuilder

	// Unsupported marks a target status as never reachable through the table
	Unsupported(toStatus Status, reason string) StateMachineBuilder

	// Build creates a new state machine instance with the given initial status
	Build(initialStatus Status) StateMachine
}

// StatusConfiguration configures the forward transition of a specific status
type StatusConfiguration interface {
	// Permit sets the single forward status reachable from the configured status
	Permit(toStatus Status) StatusConfiguration
}

type forbiddenKey struct {
	from Status
	to   Status
}

// rules is the immutable transition table shared by built machines
type rules struct {
	forward     map[Status]Status
	anyActive   map[Status]bool
	forbidden   map[forbiddenKey]error
	unsupported map[Status]string
}

// statusConfig implements StatusConfiguration
type statusConfig struct {
	builder    *stateMachineBuilder
	fromStatus Status
}

// stateMachineBuilder implements StateMachineBuilder
type stateMachineBuilder struct {
	rules rules
}

// stateMachine implements StateMachine
type stateMachine struct {
	current Status
	rules   rules
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		rules: rules{
			forward:     make(map[Status]Status),
			anyActive:   make(map[Status]bool),
			forbidden:   make(map[forbiddenKey]error),
			unsupported: make(map[Status]string),
		},
	}
}

// Configure returns a status configuration for the given status
func (b *stateMachineBuilder) Configure(status Status) StatusConfiguration {
	mustBeValid("status", status)
	return &statusConfig{builder: b, fromStatus: status}
}

// PermitFromAnyActive allows the target from every non-terminal status
func (b *stateMachineBuilder) PermitFromAnyActive(toStatus Status) StateMachineBuilder {
	mustBeValid("target status", toStatus)
	b.rules.anyActive[toStatus] = true
	return b
}

// Forbid rejects from -> to with err before the forward table is consulted
func (b *stateMachineBuilder) Forbid(fromStatus, toStatus Status, err error) StateMachineBuilder {
	mustBeValid("status", fromStatus)
	mustBeValid("target status", toStatus)
	b.rules.forbidden[forbiddenKey{from: fromStatus, to: toStatus}] = err
	return b
}

// Unsupported marks a target status as never reachable through the forward table
func (b *stateMachineBuilder) Unsupported(toStatus Status, reason string) StateMachineBuilder {
	mustBeValid("target status", toStatus)
	b.rules.unsupported[toStatus] = reason
	return b
}

// Build creates a new state machine instance with the given initial status
func (b *stateMachineBuilder) Build(initialStatus Status) StateMachine {
	mustBeValid("initial status", initialStatus)

	// Copy the table so later builder calls do not leak into built machines
	cp := rules{
		forward:     make(map[Status]Status, len(b.rules.forward)),
		anyActive:   make(map[Status]bool, len(b.rules.anyActive)),
		forbidden:   make(map[forbiddenKey]error, len(b.rules.forbidden)),
		unsupported: make(map[Status]string, len(b.rules.unsupported)),
	}
	for k, v := range b.rules.forward {
		cp.forward[k] = v
	}
	for k, v := range b.rules.anyActive {
		cp.anyActive[k] = v
	}
	for k, v := range b.rules.forbidden {
		cp.forbidden[k] = v
	}
	for k, v := range b.rules.unsupported {
		cp.unsupported[k] = v
	}

	return &stateMachine{current: initialStatus, rules: cp}
}

// Permit sets the forward status reachable from the configured status
func (c *statusConfig) Permit(toStatus Status) StatusConfiguration {
	mustBeValid("target status", toStatus)
	if c.fromStatus.IsTerminal() {
		panic(fmt.Sprintf("terminal status %s cannot have a forward transition", c.fromStatus))
	}

	c.builder.rules.forward[c.fromStatus] = toStatus
	return c
}

// State returns the current status
func (m *stateMachine) State() Status {
	return m.current
}

// Next returns the single forward status expected after the current one
func (m *stateMachine) Next() (Status, bool) {
	next, ok := m.rules.forward[m.current]
	return next, ok
}

// Transition validates the request and moves to the target status
func (m *stateMachine) Transition(ctx context.Context, to Status) error {
	if err := m.check(to); err != nil {
		return err
	}
	m.current = to
	return nil
}

func (m *stateMachine) check(to Status) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidState, to)
	}

	if m.rules.anyActive[to] && !m.current.IsTerminal() {
		return nil
	}

	if err, ok := m.rules.forbidden[forbiddenKey{from: m.current, to: to}]; ok {
		return fmt.Errorf("%w: %s -> %s", err, m.current, to)
	}

	next, ok := m.Next()
	if reason, unsupported := m.rules.unsupported[to]; unsupported {
		return &TransitionError{From: m.current, To: to, Expected: next, Reason: reason}
	}

	if !ok || next != to {
		return &TransitionError{From: m.current, To: to, Expected: next}
	}

	return nil
}

func mustBeValid(what string, s Status) {
	if !s.IsValid() {
		panic(fmt.Sprintf("invalid %s: %s", what, s))
	}
}
