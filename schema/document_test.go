package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinText(t *testing.T) {
	testCases := []struct {
		description string
		docs        []Document
		expect      string
	}{
		{description: "empty", docs: nil, expect: ""},
		{description: "single", docs: []Document{{PageContent: "Vector 1"}}, expect: "Vector 1"},
		{
			description: "multiple keep order",
			docs:        []Document{{ID: "2", PageContent: "Vector 2"}, {ID: "1", PageContent: "Vector 1"}},
			expect:      "Vector 2\n---\nVector 1",
		},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, JoinText(testCase.docs), testCase.description)
	}
}

func TestIDs(t *testing.T) {
	docs := []Document{{ID: "b"}, {ID: "a"}}
	assert.Equal(t, []string{"b", "a"}, IDs(docs))
}
