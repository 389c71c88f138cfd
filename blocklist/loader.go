package blocklist

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/c2h5oh/datasize"
)

// DefaultMaxListSize is the document size limit used when a loader has none.
const DefaultMaxListSize = 10 * datasize.MB

// Loader returns the raw JSON document of a named block list.
type Loader interface {
	Load(name string) (data []byte, err error)
}

// FSLoader reads "<name>.json" documents from a file system.
type FSLoader struct {
	FS      fs.FS
	MaxSize datasize.ByteSize
}

// NewDirLoader creates a loader that reads list documents from dir.
func NewDirLoader(dir string, maxSize datasize.ByteSize) *FSLoader {
	return &FSLoader{
		FS:      os.DirFS(dir),
		MaxSize: maxSize,
	}
}

// ValidateName checks that name can address a list document.  Names are
// plain file names without the ".json" extension.
func ValidateName(name string) (err error) {
	if name == "" || strings.ContainsAny(name, `/\`) || !fs.ValidPath(name+".json") {
		return fmt.Errorf("%q: %w", name, ErrInvalidListName)
	}

	return nil
}

// Load implements the Loader interface for *FSLoader.
func (l *FSLoader) Load(name string) (data []byte, err error) {
	if err = ValidateName(name); err != nil {
		return nil, err
	}

	f, err := l.FS.Open(name + ".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q: %w", name, ErrListNotFound)
		}
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	return ReadLimited(f, name, l.MaxSize)
}

// ReadLimited reads the whole list document from r and fails with
// ErrListTooLarge when it exceeds maxSize.  Zero maxSize means
// DefaultMaxListSize.
func ReadLimited(r io.Reader, name string, maxSize datasize.ByteSize) (data []byte, err error) {
	if maxSize == 0 {
		maxSize = DefaultMaxListSize
	}

	// 多读一个字节用于判断是否超限
	limited := &io.LimitedReader{R: r, N: int64(maxSize.Bytes()) + 1}
	data, err = io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", name, err)
	}
	if uint64(len(data)) > maxSize.Bytes() {
		return nil, fmt.Errorf("%q exceeds %s: %w", name, maxSize.String(), ErrListTooLarge)
	}

	return data, nil
}

// StaticLoader serves list documents from memory.
type StaticLoader map[string][]byte

// Load implements the Loader interface for StaticLoader.
func (l StaticLoader) Load(name string) (data []byte, err error) {
	data, ok := l[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrListNotFound)
	}

	return data, nil
}

// FallbackLoader tries its loaders in order.  The next loader is asked only
// when a list isn't found, any other error is returned as is.
type FallbackLoader []Loader

// Load implements the Loader interface for FallbackLoader.
func (l FallbackLoader) Load(name string) (data []byte, err error) {
	err = fmt.Errorf("%q: %w", name, ErrListNotFound)
	for _, loader := range l {
		data, err = loader.Load(name)
		if !errors.Is(err, ErrListNotFound) {
			return data, err
		}
	}

	return nil, err
}
