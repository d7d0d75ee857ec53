package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"DeepValue/internal/session"
)

func TestKeyIsStable(t *testing.T) {
	msgs := []session.Message{
		{Role: session.RoleUser, Content: "hello"},
		{Role: session.RoleAssistant, Content: "hi"},
	}
	assert.Equal(t, Key(msgs, false), Key(msgs, false))
}

func TestKeyDistinguishesTranscripts(t *testing.T) {
	a := []session.Message{{Role: session.RoleUser, Content: "hello"}}
	b := []session.Message{{Role: session.RoleUser, Content: "goodbye"}}
	assert.NotEqual(t, Key(a, false), Key(b, false))

	// Same text under a different role is a different conversation.
	c := []session.Message{{Role: session.RoleAssistant, Content: "hello"}}
	assert.NotEqual(t, Key(a, false), Key(c, false))
}

func TestKeyDistinguishesReasoningMode(t *testing.T) {
	msgs := []session.Message{{Role: session.RoleUser, Content: "hello"}}
	assert.NotEqual(t, Key(msgs, false), Key(msgs, true))
}
