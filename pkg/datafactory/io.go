package datafactory

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/scalde/scalde-go/pkg/clients/minio"
	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// Loader produces the pipeline's input.
type Loader interface {
	Load(ctx context.Context) (*Frame, error)
}

// Exporter writes the pipeline's output.
type Exporter interface {
	Export(ctx context.Context, f *Frame) error
}

// CSVOptions tune CSV decoding and encoding.
type CSVOptions struct {
	// Comma is the field delimiter; zero means ','.
	Comma rune

	// DTypes are applied right after loading.
	DTypes map[string]DType
}

func (o CSVOptions) comma() rune {
	if o.Comma == 0 {
		return ','
	}
	return o.Comma
}

// CSVLoader reads a CSV file with a header row. Empty cells load as nil,
// other cells as strings unless DTypes says otherwise.
type CSVLoader struct {
	Path string
	CSVOptions
}

func (l *CSVLoader) Load(ctx context.Context) (*Frame, error) {
	file, err := os.Open(l.Path)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot open %s", l.Path)
	}
	defer file.Close()

	f, err := DecodeCSV(file, l.CSVOptions)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot load %s", l.Path)
	}
	return f, nil
}

// CSVExporter writes a CSV file with a header row, creating parent
// directories as needed.
type CSVExporter struct {
	Path string
	CSVOptions
}

func (e *CSVExporter) Export(ctx context.Context, f *Frame) error {
	if err := os.MkdirAll(filepath.Dir(e.Path), 0o755); err != nil {
		return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot create directory for %s", e.Path)
	}
	file, err := os.Create(e.Path)
	if err != nil {
		return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot create %s", e.Path)
	}
	if err := EncodeCSV(file, f, e.CSVOptions); err != nil {
		_ = file.Close()
		return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot export %s", e.Path)
	}
	if err := file.Close(); err != nil {
		return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot export %s", e.Path)
	}
	return nil
}

// ObjectStorage is the part of *minio.Client (pkg/clients/minio) the
// object loader and exporter use.
type ObjectStorage interface {
	ReadObject(ctx context.Context, bucket, name string) ([]byte, error)
	WriteObject(ctx context.Context, bucket, name string, data []byte, contentType string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	ObjectExists(ctx context.Context, bucket, name string) (bool, error)
}

// ObjectLoader reads CSV from a bucket: the object named Key, or when
// Prefix is set every object under it, stacked in name order. All parts
// must share the same header.
type ObjectLoader struct {
	Storage ObjectStorage
	Bucket  string
	Key     string
	Prefix  string
	CSVOptions
}

func (l *ObjectLoader) Load(ctx context.Context) (*Frame, error) {
	if l.Prefix == "" {
		return l.loadObject(ctx, l.Key)
	}

	names, err := l.Storage.ListObjects(ctx, l.Bucket, l.Prefix)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot list %s/%s", l.Bucket, l.Prefix)
	}
	if len(names) == 0 {
		return nil, sserr.Newf(sserr.CodePipelineIO, "datafactory: no objects under %s/%s", l.Bucket, l.Prefix)
	}
	slices.Sort(names)

	parts := make([]*Frame, 0, len(names))
	for _, name := range names {
		f, err := l.loadObject(ctx, name)
		if err != nil {
			return nil, err
		}
		parts = append(parts, f)
	}
	f, err := Concat(parts...)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot stack %s/%s", l.Bucket, l.Prefix)
	}
	return f, nil
}

func (l *ObjectLoader) loadObject(ctx context.Context, key string) (*Frame, error) {
	data, err := l.Storage.ReadObject(ctx, l.Bucket, key)
	if minio.IsNotFound(err) {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: object %s/%s does not exist", l.Bucket, key).
			WithDetail("object", l.Bucket+"/"+key)
	}
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot read %s/%s", l.Bucket, key)
	}
	f, err := DecodeCSV(bytes.NewReader(data), l.CSVOptions)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot load %s/%s", l.Bucket, key)
	}
	return f, nil
}

// ObjectExporter writes the frame as a CSV object. With NoOverwrite set an
// existing object is left alone and the export fails.
type ObjectExporter struct {
	Storage     ObjectStorage
	Bucket      string
	Key         string
	NoOverwrite bool
	CSVOptions
}

func (e *ObjectExporter) Export(ctx context.Context, f *Frame) error {
	if e.NoOverwrite {
		exists, err := e.Storage.ObjectExists(ctx, e.Bucket, e.Key)
		if err != nil {
			return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot check %s/%s", e.Bucket, e.Key)
		}
		if exists {
			return sserr.Newf(sserr.CodePipelineIO, "datafactory: object %s/%s already exists", e.Bucket, e.Key)
		}
	}

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, f, e.CSVOptions); err != nil {
		return sserr.Wrap(err, sserr.CodePipelineIO, "datafactory: cannot encode frame")
	}
	if err := e.Storage.WriteObject(ctx, e.Bucket, e.Key, buf.Bytes(), "text/csv"); err != nil {
		return sserr.Wrapf(err, sserr.CodePipelineIO, "datafactory: cannot write %s/%s", e.Bucket, e.Key)
	}
	return nil
}

// DecodeCSV reads a header row followed by records.
func DecodeCSV(r io.Reader, opts CSVOptions) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.comma()
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	var rows [][]any
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make([]any, len(rec))
		for i, cell := range rec {
			if cell != "" {
				row[i] = cell
			}
		}
		rows = append(rows, row)
	}

	f, err := NewFrame(header, rows...)
	if err != nil {
		return nil, err
	}
	return f.AsType(opts.DTypes)
}

// EncodeCSV writes a header row followed by one record per row.
func EncodeCSV(w io.Writer, f *Frame, opts CSVOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = opts.comma()

	if err := cw.Write(f.Columns); err != nil {
		return err
	}
	rec := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i, v := range row {
			rec[i] = FormatValue(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
