package git

import (
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	indexDirPrefix = "reposync-index-"
	indexFileName  = "index"
)

// Index is an isolated git index living in a private temporary directory.
// The index file itself is created by the first read-tree; an empty file
// would not be a valid index. Close removes the directory.
type Index struct {
	fs   billy.Filesystem
	dir  string
	path string
}

// NewIndex allocates an isolated index under the OS temporary directory.
func NewIndex() (*Index, error) {
	return NewIndexIn(os.TempDir())
}

// NewIndexIn allocates an isolated index under base.
func NewIndexIn(base string) (*Index, error) {
	fs := osfs.New(base)

	dir, err := util.TempDir(fs, ".", indexDirPrefix)
	if err != nil {
		return nil, WrapErrorf(err, "failed to create isolated index directory in %s", base)
	}

	idx := &Index{fs: fs, dir: dir}
	idx.path = fs.Join(idx.root(), indexFileName)
	return idx, nil
}

// Path returns the absolute path of the index file, or "" once closed.
func (i *Index) Path() string {
	if i == nil {
		return ""
	}
	return i.path
}

// root returns the absolute path of the private directory, or "" once closed.
func (i *Index) root() string {
	if i == nil || i.fs == nil {
		return ""
	}
	return i.fs.Join(i.fs.Root(), i.dir)
}

// Close removes the private directory. It is safe to call more than once.
func (i *Index) Close() error {
	if i == nil || i.fs == nil {
		return nil
	}

	err := util.RemoveAll(i.fs, i.dir)
	i.fs = nil
	i.dir = ""
	i.path = ""

	return WrapError(err, "failed to remove isolated index directory")
}
