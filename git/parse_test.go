package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "", FirstLine(""))
	assert.Equal(t, "", FirstLine("\n  \n"))
	assert.Equal(t, "abc", FirstLine("\n  abc  \nxyz"))
}

func TestLines(t *testing.T) {
	assert.Nil(t, Lines("\n\n"))
	assert.Equal(t, []string{"a", "b"}, Lines(" a\n\nb \n"))
}

func TestConflictPaths(t *testing.T) {
	out := "4b825dc642cb6eb9a060e54bf8d69288fbee4904\n" +
		"100644 aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa 1\tnotes/b.txt\n" +
		"100644 bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb 2\tnotes/b.txt\n" +
		"100644 cccccccccccccccccccccccccccccccccccccccc 3\tnotes/b.txt\n" +
		"100644 dddddddddddddddddddddddddddddddddddddddd 2\ta.txt\n" +
		"100644 eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee 3\ta.txt\n" +
		"\n" +
		"Auto-merging a.txt\n" +
		"CONFLICT (content): Merge conflict in a.txt\n"

	assert.Equal(t, []string{"a.txt", "notes/b.txt"}, ConflictPaths(out))
	assert.Empty(t, ConflictPaths("4b825dc642cb6eb9a060e54bf8d69288fbee4904\n"))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "0123456789ab", Short("0123456789abcdef0123"))
}
