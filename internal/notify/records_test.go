package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAcceptedShapes(t *testing.T) {
	want := []Record{{ID: "1"}}
	bodies := []string{
		`[{"_id":"1"}]`,
		`{"notifications":[{"_id":"1"}]}`,
		`{"data":[{"_id":"1"}]}`,
	}
	for _, body := range bodies {
		assert.Equal(t, want, Normalize([]byte(body)), body)
	}
}

func TestNormalizeShapePriority(t *testing.T) {
	body := `{"data":[{"id":"d"}],"notifications":[{"id":"n"}]}`
	assert.Equal(t, []Record{{ID: "n"}}, Normalize([]byte(body)))
}

func TestNormalizeUnknownShapes(t *testing.T) {
	bodies := []string{
		``,
		`   `,
		`not json`,
		`null`,
		`42`,
		`"hello"`,
		`{}`,
		`{"notifications":{"_id":"1"}}`,
		`{"data":null}`,
		`{"items":[{"_id":"1"}]}`,
	}
	for _, body := range bodies {
		assert.Empty(t, Normalize([]byte(body)), "body %q", body)
	}
}

func TestNormalizeIdentifierCoercion(t *testing.T) {
	body := `[
		{"_id":"abc","id":"ignored"},
		{"id":17},
		{"_id":"","id":"fallback"},
		{"_id":{"$oid":"64f0c2"}},
		{"message":"no id"},
		"not an object",
		{"_id":true}
	]`
	got := Normalize([]byte(body))
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"abc", "17", "fallback", "64f0c2"}, ids)
}

func TestNormalizeNumericAndPaddedIdentifiers(t *testing.T) {
	body := `[{"id":1.0},{"id":1e2},{"_id":2.5},{"_id":"x"},{"_id":" x"}]`
	got := Normalize([]byte(body))
	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"1", "100", "2.5", "x", " x"}, ids)
}

func TestRecordText(t *testing.T) {
	got := Normalize([]byte(`[
		{"_id":"1","message":"Budget exceeded","text":"unused"},
		{"_id":"2","text":"Invited to group"},
		{"_id":"3"},
		{"_id":"4","message":42}
	]`))
	texts := make([]string, 0, len(got))
	for _, r := range got {
		texts = append(texts, r.Text())
	}
	assert.Equal(t, []string{"Budget exceeded", "Invited to group", Placeholder, Placeholder}, texts)
}
