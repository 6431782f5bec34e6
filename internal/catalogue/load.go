package catalogue

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/plugmods/internal/module"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// FailFast stops on the first error encountered.
	FailFast LoadMode = iota
	// CollectAll collects all errors before returning.
	CollectAll
)

// LoadDir loads the CUE package in dir and compiles its catalogue.
func LoadDir(dir string, opts Options, mode LoadMode) (*Catalogue, []error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("catalogue directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	digest, err := digestFiles(dir, files)
	if err != nil {
		return nil, []error{&CompileError{Field: "load", Message: err.Error()}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&CompileError{Field: "load", Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatLoadError(inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	cat, errs := Compile(value, opts, mode)
	if cat != nil {
		cat.Digest = digest
		cat.FileCount = len(files)
	}
	return cat, errs
}

// LoadPath loads a catalogue directory or a single CUE file.
func LoadPath(path string, opts Options, mode LoadMode) (*Catalogue, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("catalogue: %v", err)}}
	}
	if info.IsDir() {
		return LoadDir(path, opts, mode)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&CompileError{Field: "load", Message: fmt.Sprintf("catalogue: %v", err)}}
	}
	return compileSource(src, path, opts, mode)
}

// CompileString compiles catalogue source held in memory.
func CompileString(src string, opts Options, mode LoadMode) (*Catalogue, []error) {
	return compileSource([]byte(src), "catalogue.cue", opts, mode)
}

func compileSource(src []byte, filename string, opts Options, mode LoadMode) (*Catalogue, []error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	cat, errs := Compile(value, opts, mode)
	if cat != nil {
		cat.Digest = module.Digest(module.DomainCatalog, src)
		cat.FileCount = 1
	}
	return cat, errs
}

// FindCUEFiles returns the .cue files directly inside dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// digestFiles hashes file names relative to dir and their contents, so
// the digest does not depend on where the catalogue is checked out.
func digestFiles(dir string, files []string) (string, error) {
	var buf bytes.Buffer
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			return "", err
		}
		buf.WriteString(filepath.ToSlash(rel))
		buf.WriteByte(0)
		buf.Write(data)
		buf.WriteByte(0)
	}
	return module.Digest(module.DomainCatalog, buf.Bytes()), nil
}

func formatLoadError(err error) error {
	if ce, ok := formatCUEError(err).(*CompileError); ok {
		return ce
	}
	return &CompileError{Field: "load", Message: fmt.Sprintf("loading CUE files: %v", err)}
}
