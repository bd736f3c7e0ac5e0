package delegation

import (
	"fmt"
	"strings"

	"github.com/delegates/backend/internal/domain/shared"
)

// BaseAttribute is the key used for errors that belong to the record as a
// whole rather than to one attribute.
const BaseAttribute = "base"

// Errors collects validation messages keyed by attribute (column) name.
// The zero value is ready to use.
type Errors struct {
	messages map[string][]string
	order    []string
}

// Add appends a message for attr.
func (e *Errors) Add(attr, message string) {
	if e.messages == nil {
		e.messages = make(map[string][]string)
	}
	if _, ok := e.messages[attr]; !ok {
		e.order = append(e.order, attr)
	}
	e.messages[attr] = append(e.messages[attr], message)
}

// On returns the first message for attr, or "" if there is none.
func (e *Errors) On(attr string) string {
	if msgs := e.messages[attr]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// Get returns every message recorded for attr.
func (e *Errors) Get(attr string) []string {
	return append([]string(nil), e.messages[attr]...)
}

// Has reports whether attr has at least one message.
func (e *Errors) Has(attr string) bool {
	return len(e.messages[attr]) > 0
}

// Attributes returns the attributes with errors, in the order they were first added.
func (e *Errors) Attributes() []string {
	return append([]string(nil), e.order...)
}

// Len returns the total number of messages.
func (e *Errors) Len() int {
	n := 0
	for _, msgs := range e.messages {
		n += len(msgs)
	}
	return n
}

// Empty reports whether no messages were recorded.
func (e *Errors) Empty() bool {
	return e.Len() == 0
}

// Clear removes all messages.
func (e *Errors) Clear() {
	e.messages = nil
	e.order = nil
}

// FullMessages returns messages prefixed with the humanized attribute name,
// e.g. "Firstname can't be blank".
func (e *Errors) FullMessages() []string {
	var out []string
	for _, attr := range e.order {
		for _, msg := range e.messages[attr] {
			if attr == BaseAttribute {
				out = append(out, msg)
				continue
			}
			out = append(out, humanize(attr)+" "+msg)
		}
	}
	return out
}

func (e *Errors) clone() *Errors {
	c := &Errors{}
	for _, attr := range e.order {
		for _, msg := range e.messages[attr] {
			c.Add(attr, msg)
		}
	}
	return c
}

func humanize(attr string) string {
	s := strings.ReplaceAll(strings.TrimSuffix(attr, "_id"), "_", " ")
	if s == "" {
		return attr
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UnknownAttributeError is returned when an attribute is read or written
// that the Delegator does not delegate.
type UnknownAttributeError struct {
	Model     string
	Attribute string
}

func (e *UnknownAttributeError) Error() string {
	return fmt.Sprintf("unknown delegated attribute %q for %s", e.Attribute, e.Model)
}

// Is makes errors.Is(err, shared.ErrUnknownAttribute) hold.
func (e *UnknownAttributeError) Is(target error) bool {
	return target == shared.ErrUnknownAttribute
}

// RecordInvalidError is returned by SaveStrict when the primary record fails
// validation.
type RecordInvalidError struct {
	Model  string
	Errors *Errors
}

func (e *RecordInvalidError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Model, strings.Join(e.Errors.FullMessages(), ", "))
}

// Is makes errors.Is(err, shared.ErrRecordInvalid) hold.
func (e *RecordInvalidError) Is(target error) bool {
	return target == shared.ErrRecordInvalid
}
