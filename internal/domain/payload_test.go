package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadLookup(t *testing.T) {
	p := P(
		"service", P("name", "Plumbing", "id", 7),
		"note", "urgent",
	)

	v, ok := p.Lookup("service.name")
	require.True(t, ok)
	assert.Equal(t, "Plumbing", v)

	v, ok = p.Lookup("note")
	require.True(t, ok)
	assert.Equal(t, "urgent", v)

	_, ok = p.Lookup("service.missing")
	assert.False(t, ok)

	_, ok = p.Lookup("note.deeper")
	assert.False(t, ok)
}

func TestPayloadJSONRoundTripKeepsOrder(t *testing.T) {
	p := P(
		"zeta", "last-first",
		"alpha", P("beta", "nested"),
	)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":"last-first","alpha":{"beta":"nested"}}`, string(data))

	var back Payload
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "zeta", back[0].Key)
	assert.Equal(t, "alpha", back[1].Key)

	v, ok := back.Lookup("alpha.beta")
	require.True(t, ok)
	assert.Equal(t, "nested", v)
}

func TestPayloadUnmarshalNumbers(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"count":3,"price":12.5}`), &p))

	v, ok := p.Lookup("count")
	require.True(t, ok)
	assert.Equal(t, "3", FormatValue(v))

	v, ok = p.Lookup("price")
	require.True(t, ok)
	assert.Equal(t, "12.5", FormatValue(v))
}

func TestEventValidate(t *testing.T) {
	assert.Error(t, NotificationEvent{RecipientUserID: "u1"}.Validate())
	assert.Error(t, NotificationEvent{Kind: KindRequestCreated}.Validate())
	assert.NoError(t, NotificationEvent{Kind: KindRequestCreated, RecipientUserID: "u1"}.Validate())
}
