package roleindex

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/resume-reviewer/internal/schemas"
	"github.com/jonathan/resume-reviewer/internal/types"
)

// Artifact layout under the artifacts directory.
const (
	currentFile    = "CURRENT"
	lockFile       = "build.lock"
	buildsDir      = "builds"
	recordsFile    = "records.json"
	vectorsFile    = "vectors.bin"
	classifierFile = "classifier.json"
)

const (
	vectorsMagic   = "RRVX"
	vectorsVersion = uint32(1)
)

// LoadStatus is the outcome of opening persisted artifacts.
type LoadStatus string

// Load outcomes.
const (
	StatusLoaded   LoadStatus = "loaded"
	StatusNotFound LoadStatus = "not_found"
	StatusCorrupt  LoadStatus = "corrupt"
)

// LoadResult carries the loaded index or the reason it is unavailable.
type LoadResult struct {
	Index  *Index
	Status LoadStatus
	Err    error
}

// Available reports whether the index can be used.
func (r LoadResult) Available() bool {
	return r.Status == StatusLoaded && r.Index != nil
}

// Message is a human-readable description of the outcome.
func (r LoadResult) Message() string {
	if r.Available() {
		return fmt.Sprintf("knowledge base loaded: %d roles (build %s)", r.Index.Len(), r.Index.BuildID())
	}
	if r.Err != nil {
		return "knowledge base unavailable: " + r.Err.Error()
	}
	return "knowledge base unavailable"
}

// recordsDoc is the on-disk form of records.json.
type recordsDoc struct {
	BuildID  string             `json:"build_id"`
	BuiltAt  time.Time          `json:"built_at"`
	Embedder string             `json:"embedder"`
	Dim      int                `json:"dim"`
	Count    int                `json:"count"`
	Records  []types.RoleRecord `json:"records"`
}

// Open loads the active build under dir. It never panics or returns a bare
// error: missing artifacts yield StatusNotFound and unusable ones
// StatusCorrupt. A nil embedder is resolved from the stored embedder name
// when it names a hashing embedder.
func Open(dir string, embedder Embedder) LoadResult {
	ix, err := Load(dir, embedder)
	if err == nil {
		return LoadResult{Index: ix, Status: StatusLoaded}
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return LoadResult{Status: StatusNotFound, Err: err}
	}
	return LoadResult{Status: StatusCorrupt, Err: err}
}

// Load reads the active build under dir. Errors are *NotFoundError or
// *CorruptError.
func Load(dir string, embedder Embedder) (*Index, error) {
	buildID, err := readCurrent(dir)
	if err != nil {
		return nil, err
	}
	buildDir := filepath.Join(dir, buildsDir, buildID)
	for _, name := range []string{recordsFile, vectorsFile, classifierFile} {
		p := filepath.Join(buildDir, name)
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &NotFoundError{Path: p}
			}
			return nil, &CorruptError{Path: p, Message: "unreadable", Cause: err}
		}
	}

	doc, err := readRecords(filepath.Join(buildDir, recordsFile))
	if err != nil {
		return nil, err
	}
	if doc.BuildID != buildID {
		return nil, &CorruptError{
			Path:    filepath.Join(buildDir, recordsFile),
			Message: fmt.Sprintf("build id %q does not match %q", doc.BuildID, buildID),
		}
	}

	if embedder == nil {
		embedder, err = embedderFromName(doc.Embedder)
		if err != nil {
			return nil, &CorruptError{Path: filepath.Join(buildDir, recordsFile), Message: err.Error()}
		}
	}
	if embedder.Name() != doc.Embedder || embedder.Dim() != doc.Dim {
		return nil, &CorruptError{
			Path: filepath.Join(buildDir, recordsFile),
			Message: fmt.Sprintf("index built with embedder %s (dim %d), configured %s (dim %d)",
				doc.Embedder, doc.Dim, embedder.Name(), embedder.Dim()),
		}
	}

	flat, err := readVectors(filepath.Join(buildDir, vectorsFile))
	if err != nil {
		return nil, err
	}
	if flat.Dim() != doc.Dim || flat.Len() != doc.Count {
		return nil, &CorruptError{
			Path: filepath.Join(buildDir, vectorsFile),
			Message: fmt.Sprintf("holds %d vectors of dim %d, records expect %d of dim %d",
				flat.Len(), flat.Dim(), doc.Count, doc.Dim),
		}
	}

	clf, err := readClassifier(filepath.Join(buildDir, classifierFile))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(doc.Records))
	for i, r := range doc.Records {
		names[i] = r.JobPosition
	}
	if want := distinctSorted(names); !slices.Equal(want, clf.Classes) {
		return nil, &CorruptError{
			Path:    filepath.Join(buildDir, classifierFile),
			Message: fmt.Sprintf("classifier has %d classes, records have %d roles", len(clf.Classes), len(want)),
		}
	}

	return &Index{
		buildID:  doc.BuildID,
		builtAt:  doc.BuiltAt,
		records:  doc.Records,
		flat:     flat,
		clf:      clf,
		embedder: embedder,
	}, nil
}

// Save persists ix as a new build under dir and makes it the active build.
// Only one Save may run per directory; builds older than the previously
// active one are removed.
func Save(ix *Index, dir string) error {
	if ix == nil || ix.flat == nil || ix.clf == nil {
		return &BuildError{Message: "nothing to save", Cause: ErrIndexNotLoaded}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &BuildError{Message: "failed to create artifacts directory", Cause: err}
	}

	release, err := acquireLock(dir)
	if err != nil {
		return err
	}
	defer release()

	buildDir := filepath.Join(dir, buildsDir, ix.buildID)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return &BuildError{Message: "failed to create build directory", Cause: err}
	}

	doc := recordsDoc{
		BuildID:  ix.buildID,
		BuiltAt:  ix.builtAt,
		Embedder: ix.embedder.Name(),
		Dim:      ix.flat.Dim(),
		Count:    len(ix.records),
		Records:  ix.records,
	}
	if err := writeJSON(filepath.Join(buildDir, recordsFile), doc); err != nil {
		return &BuildError{Message: "failed to write records", Cause: err}
	}
	if err := writeVectors(filepath.Join(buildDir, vectorsFile), ix.flat); err != nil {
		return &BuildError{Message: "failed to write vectors", Cause: err}
	}
	if err := writeJSON(filepath.Join(buildDir, classifierFile), ix.clf); err != nil {
		return &BuildError{Message: "failed to write classifier", Cause: err}
	}

	previous, _ := readCurrent(dir)
	if err := writeFileAtomic(filepath.Join(dir, currentFile), []byte(ix.buildID+"\n")); err != nil {
		return &BuildError{Message: "failed to activate build", Cause: err}
	}
	if err := pruneBuilds(dir, ix.buildID, previous); err != nil {
		return &BuildError{Message: "failed to prune old builds", Cause: err}
	}
	return nil
}

// staleLockAge is how long a build lock is honored while its owner looks alive.
const staleLockAge = 30 * time.Minute

// acquireLock creates the build lock file exclusively. A lock left behind by
// a process that is gone, or older than staleLockAge, is taken over.
func acquireLock(dir string) (func(), error) {
	p := filepath.Join(dir, lockFile)
	f, err := createLock(p)
	if errors.Is(err, fs.ErrExist) && lockIsStale(p, time.Now()) {
		if rmErr := os.Remove(p); rmErr == nil || errors.Is(rmErr, fs.ErrNotExist) {
			f, err = createLock(p)
		}
	}
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &BuildError{Message: p, Cause: ErrBuildInProgress}
		}
		return nil, &BuildError{Message: "failed to create build lock", Cause: err}
	}
	_, _ = fmt.Fprintf(f, "%d\n%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_ = f.Close()
	return func() { _ = os.Remove(p) }, nil
}

func createLock(p string) (*os.File, error) {
	return os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

// lockIsStale reports whether the lock at p is older than staleLockAge or
// names a pid that no longer runs. Unreadable locks are not stale.
func lockIsStale(p string, now time.Time) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if now.Sub(info.ModTime()) > staleLockAge {
		return true
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return false
	}
	return !processAlive(pid)
}

// processAlive sends signal 0 to pid. Windows has no signal 0, so
// there only the lock age applies.
func processAlive(pid int) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func readCurrent(dir string) (string, error) {
	p := filepath.Join(dir, currentFile)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Path: p}
		}
		return "", &CorruptError{Path: p, Message: "unreadable", Cause: err}
	}
	id := strings.TrimSpace(string(data))
	if id == "" || id != filepath.Base(id) || id == "." || id == ".." {
		return "", &CorruptError{Path: p, Message: fmt.Sprintf("invalid build id %q", id)}
	}
	return id, nil
}

func readRecords(p string) (*recordsDoc, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, &CorruptError{Path: p, Message: "unreadable", Cause: err}
	}
	if err := schemas.Validate(schemas.RoleRecords, data); err != nil {
		return nil, &CorruptError{Path: p, Message: "schema validation failed", Cause: err}
	}
	var doc recordsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptError{Path: p, Message: "invalid JSON", Cause: err}
	}
	if doc.Count != len(doc.Records) {
		return nil, &CorruptError{Path: p, Message: fmt.Sprintf("count %d but %d records", doc.Count, len(doc.Records))}
	}
	return &doc, nil
}

func readClassifier(p string) (*Classifier, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, &CorruptError{Path: p, Message: "unreadable", Cause: err}
	}
	var clf Classifier
	if err := json.Unmarshal(data, &clf); err != nil {
		return nil, &CorruptError{Path: p, Message: "invalid JSON", Cause: err}
	}
	if err := clf.validate(); err != nil {
		return nil, &CorruptError{Path: p, Message: "invalid classifier", Cause: err}
	}
	return &clf, nil
}

// vectorsHeader precedes the little-endian float32 rows in vectors.bin.
type vectorsHeader struct {
	Magic   [4]byte
	Version uint32
	Dim     uint32
	Count   uint32
}

func writeVectors(p string, flat *FlatIndex) error {
	return writeAtomic(p, func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		h := vectorsHeader{Version: vectorsVersion, Dim: uint32(flat.Dim()), Count: uint32(flat.Len())}
		copy(h.Magic[:], vectorsMagic)
		if err := binary.Write(bw, binary.LittleEndian, h); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, flat.data); err != nil {
			return err
		}
		return bw.Flush()
	})
}

func readVectors(p string) (*FlatIndex, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, &CorruptError{Path: p, Message: "unreadable", Cause: err}
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, &CorruptError{Path: p, Message: "unreadable", Cause: err}
	}

	br := bufio.NewReader(f)
	var h vectorsHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, &CorruptError{Path: p, Message: "truncated header", Cause: err}
	}
	if string(h.Magic[:]) != vectorsMagic {
		return nil, &CorruptError{Path: p, Message: "bad magic"}
	}
	if h.Version != vectorsVersion {
		return nil, &CorruptError{Path: p, Message: "unsupported version " + strconv.Itoa(int(h.Version))}
	}
	if h.Dim == 0 {
		return nil, &CorruptError{Path: p, Message: "zero dimension"}
	}
	want := int64(binary.Size(h)) + 4*int64(h.Dim)*int64(h.Count)
	if info.Size() != want {
		return nil, &CorruptError{Path: p, Message: fmt.Sprintf("size %d, expected %d", info.Size(), want)}
	}

	flat := NewFlatIndex(int(h.Dim))
	flat.data = make([]float32, int(h.Dim)*int(h.Count))
	if err := binary.Read(br, binary.LittleEndian, flat.data); err != nil {
		return nil, &CorruptError{Path: p, Message: "truncated vectors", Cause: err}
	}
	return flat, nil
}

func writeJSON(p string, v any) error {
	return writeAtomic(p, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFileAtomic(p string, data []byte) error {
	return writeAtomic(p, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place.
func writeAtomic(p string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, p)
}

// pruneBuilds removes every build directory except keep and previous.
func pruneBuilds(dir, keep, previous string) error {
	root := filepath.Join(dir, buildsDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keep || e.Name() == previous {
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// embedderFromName reconstructs a hashing embedder from its stored name.
func embedderFromName(name string) (Embedder, error) {
	dimStr, ok := strings.CutPrefix(name, EmbedderHashing+"-")
	if !ok {
		return nil, fmt.Errorf("index built with embedder %s; configure it to load this index", name)
	}
	dim, err := strconv.Atoi(dimStr)
	if err != nil || dim <= 0 {
		return nil, fmt.Errorf("invalid embedder name %q", name)
	}
	return NewHashingEmbedder(dim), nil
}
