// Package archive loads the packaged model bundle: a zstd-compressed
// tar stream holding one ONNX graph per pipeline stage plus a metadata
// blob. Loading validates structure eagerly so a malformed bundle
// fails before any inference session is constructed.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"
)

// Entry filenames inside the container mapped to logical names.
const (
	EntryMetadata = "metadata.json"
	EntryBert     = "bert.onnx"
	EntryAcoustic = "acoustic.onnx"
	EntryVocoder  = "vocoder.onnx"
)

// Logical model names, also used in MissingEntryError and as session
// names in logs.
const (
	ModelBert     = "bert"
	ModelAcoustic = "acoustic"
	ModelVocoder  = "vocoder"
)

var requiredModels = map[string]string{
	EntryBert:     ModelBert,
	EntryAcoustic: ModelAcoustic,
	EntryVocoder:  ModelVocoder,
}

// Archive owns the decompressed archive entries and the parsed
// metadata. Immutable after Load; safe to share by reference across
// concurrent pipelines.
type Archive struct {
	models map[string][]byte
	extras map[string][]byte
	meta   *Metadata
}

// Load reads a model archive from r.
func Load(r io.Reader) (*Archive, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	models := make(map[string][]byte, len(requiredModels))
	extras := make(map[string][]byte)
	var rawMeta []byte

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %v", ErrCorrupt, hdr.Name, err)
		}

		switch hdr.Name {
		case EntryMetadata:
			rawMeta = data
		default:
			if logical, ok := requiredModels[hdr.Name]; ok {
				models[logical] = data
			} else {
				extras[hdr.Name] = data
			}
		}
	}

	if rawMeta == nil {
		return nil, &MissingEntryError{Name: "metadata"}
	}

	for _, logical := range []string{ModelBert, ModelAcoustic, ModelVocoder} {
		if _, ok := models[logical]; !ok {
			return nil, &MissingEntryError{Name: logical}
		}
	}

	meta, err := parseMetadata(rawMeta)
	if err != nil {
		return nil, err
	}

	if meta.Tokenizer == TokenizerSentencePiece {
		if _, ok := extras[meta.SPModelEntry]; !ok {
			return nil, &MissingEntryError{Name: meta.SPModelEntry}
		}
	}

	a := &Archive{models: models, extras: extras, meta: meta}

	slog.Info(
		"loaded model archive",
		"sample_rate", meta.SampleRate,
		"hop_length", meta.HopLength,
		"phonemes", len(meta.Phonemes),
		"styles", len(meta.Styles),
	)

	return a, nil
}

// LoadFile reads a model archive from disk.
func LoadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Metadata returns the parsed metadata record.
func (a *Archive) Metadata() *Metadata {
	return a.meta
}

// Model returns the serialized graph for a logical model name.
func (a *Archive) Model(name string) ([]byte, error) {
	data, ok := a.models[name]
	if !ok {
		return nil, &MissingEntryError{Name: name}
	}
	return data, nil
}

// Extra returns a non-model payload entry by its archive filename,
// such as a bundled tokenizer model.
func (a *Archive) Extra(name string) ([]byte, error) {
	data, ok := a.extras[name]
	if !ok {
		return nil, &MissingEntryError{Name: name}
	}
	return data, nil
}

// EntryInfo describes one archive entry for diagnostics.
type EntryInfo struct {
	Name string
	Size int
}

// Entries lists archive entries sorted by name.
func (a *Archive) Entries() []EntryInfo {
	out := make([]EntryInfo, 0, len(a.models)+len(a.extras)+1)
	for entry, logical := range requiredModels {
		out = append(out, EntryInfo{Name: entry, Size: len(a.models[logical])})
	}
	for name, data := range a.extras {
		out = append(out, EntryInfo{Name: name, Size: len(data)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}
