package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		raw      string
		wantText string
		wantList []string
	}{
		{`"Go"`, "Go", nil},
		{`["a","b"]`, "", []string{"a", "b"}},
		{`4`, "4", nil},
		{`true`, "yes", nil},
		{`false`, "no", nil},
		{`null`, "", nil},
		{``, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			text, list, err := DecodeValue(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantList, list)
		})
	}
}

func TestDecodeValueRejectsObjects(t *testing.T) {
	_, _, err := DecodeValue(json.RawMessage(`{"a":1}`))
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, _, err = DecodeValue(json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestFileMessageContentIsBase64(t *testing.T) {
	var msg FileMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"file","file_name":"a.txt","content":"aGVsbG8="}`), &msg))
	assert.Equal(t, TypeFile, msg.Type)
	assert.Equal(t, "a.txt", msg.FileName)
	assert.Equal(t, []byte("hello"), msg.Content)
}

func TestAnswerMessageTarget(t *testing.T) {
	var msg AnswerMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"answer","session_id":"sess-1","question_uuid":"q2","value":true}`), &msg))
	assert.Equal(t, TypeAnswer, msg.Type)
	assert.Equal(t, "sess-1", msg.SessionID)
	assert.Equal(t, "q2", msg.QuestionUUID)
	assert.JSONEq(t, `true`, string(msg.Value))
}
