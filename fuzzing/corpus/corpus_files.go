package corpus

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/charybdis-fuzz/charybdis/utils"
	"github.com/pkg/errors"
)

// corpusFile pairs one JSON-serializable corpus item with its on-disk state.
type corpusFile[T any] struct {
	// fileName describes the name the item is stored under within the directory.
	fileName string

	// data describes the item itself.
	data T

	// writtenToDisk indicates the item has been flushed already, so the next flush skips it.
	writtenToDisk bool
}

// corpusDirectory reads and writes the JSON-encoded corpus items of one directory. A directory created with an
// empty path is disabled and performs no I/O.
type corpusDirectory[T any] struct {
	// path describes the directory items live in, or an empty string when disabled.
	path string

	// files describes the items currently held, loaded from disk or staged for the next flush.
	files []*corpusFile[T]

	// filesLock guards files against concurrent staging and flushing.
	filesLock sync.Mutex
}

// newCorpusDirectory creates a corpusDirectory rooted at the provided path.
func newCorpusDirectory[T any](path string) *corpusDirectory[T] {
	return &corpusDirectory[T]{
		path:  path,
		files: make([]*corpusFile[T], 0),
	}
}

// addFile stages an item for the next flush. An item already held under the same name is replaced and marked
// unwritten.
func (cd *corpusDirectory[T]) addFile(fileName string, data T) error {
	cd.filesLock.Lock()
	defer cd.filesLock.Unlock()

	for _, file := range cd.files {
		if file.fileName == fileName {
			file.data = data
			file.writtenToDisk = false
			return nil
		}
	}
	cd.files = append(cd.files, &corpusFile[T]{
		fileName: fileName,
		data:     data,
	})
	return nil
}

// readFiles replaces the held items with every file in the directory matching the provided glob pattern.
func (cd *corpusDirectory[T]) readFiles(filePattern string) error {
	if cd.path == "" || !utils.DirectoryExists(cd.path) {
		return nil
	}

	filePaths, err := filepath.Glob(filepath.Join(cd.path, filePattern))
	if err != nil {
		return err
	}

	cd.files = make([]*corpusFile[T], 0, len(filePaths))
	for _, filePath := range filePaths {
		b, err := os.ReadFile(filePath)
		if err != nil {
			return err
		}
		var data T
		if err = json.Unmarshal(b, &data); err != nil {
			return errors.Wrapf(err, "could not parse corpus file %s", filepath.Base(filePath))
		}
		cd.files = append(cd.files, &corpusFile[T]{
			fileName:      filepath.Base(filePath),
			data:          data,
			writtenToDisk: true,
		})
	}
	return nil
}

// writeFiles flushes every item not yet written to disk, creating the directory if needed.
func (cd *corpusDirectory[T]) writeFiles() error {
	if cd.path == "" {
		return nil
	}

	cd.filesLock.Lock()
	defer cd.filesLock.Unlock()

	if err := utils.MakeDirectory(cd.path); err != nil {
		return err
	}
	for _, file := range cd.files {
		if file.writtenToDisk {
			continue
		}
		b, err := json.MarshalIndent(file.data, "", " ")
		if err != nil {
			return err
		}
		if err = os.WriteFile(filepath.Join(cd.path, file.fileName), b, 0644); err != nil {
			return errors.Wrapf(err, "could not write corpus file %s", file.fileName)
		}
		file.writtenToDisk = true
	}
	return nil
}
