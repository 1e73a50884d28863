package stats

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jchantrell/twmap/internal/database"
	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/jchantrell/twmap/internal/format"
	"github.com/jchantrell/twmap/internal/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wrongMagic() []byte {
	image := testutil.Minimal(format.Version3)
	copy(image, "XXXX")
	return image
}

func corruptPayload() []byte {
	image := testutil.Minimal(format.Version4)
	sizeData := int(testutil.Int32(image, testutil.OffSizeData))
	for i := len(image) - sizeData; i < len(image); i++ {
		image[i] ^= 0x5a
	}
	return image
}

// batch is a set of map files used across tests, in argument order.
func batch(t *testing.T) (afero.Fs, []string) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := []struct {
		name string
		data []byte
	}{
		{"maps/dm1.map", testutil.NewBuilder(format.Version4).
			AddItem(0, 0, 1).AddItem(4, 0).AddItem(4, 1).
			AddData([]byte("hello")).Bytes()},
		{"maps/ctf1.map", testutil.Minimal(format.Version3)},
		{"maps/bad1.map", wrongMagic()},
		{"maps/bad2.map", wrongMagic()},
		{"maps/short.map", testutil.Minimal(format.Version3)[:40]},
		{"maps/payload.map", corruptPayload()},
	}
	paths := make([]string, 0, len(files)+1)
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fsys, f.name, f.data, 0o644))
		paths = append(paths, f.name)
	}
	return fsys, append(paths, "maps/missing.map")
}

func openFs(fsys afero.Fs) OpenFunc {
	return func(_ context.Context, path string) (*datafile.Reader, error) {
		return datafile.OpenFs(fsys, path)
	}
}

func TestErrorStats_Record(t *testing.T) {
	s := NewErrorStats()
	s.Record(nil)
	s.Record(&datafile.Error{Kind: datafile.KindFormat, Err: &format.Error{Kind: format.KindWrongMagic, Detail: `"XXXX"`}})
	s.Record(&datafile.Error{Kind: datafile.KindFormat, Err: &format.Error{Kind: format.KindWrongMagic, Detail: `"XXXX"`}})
	s.Record(&datafile.Error{Kind: datafile.KindFormat, Err: &format.Error{Kind: format.KindWrongMagic, Detail: `"YYYY"`}})
	s.Record(&datafile.Error{Kind: datafile.KindStorage, Err: format.ErrTruncated})
	s.Record(errors.New("connection refused"))

	assert.Equal(t, uint64(1), s.OK)
	assert.Len(t, s.Format, 2)
	assert.Equal(t, uint64(2), s.Format[format.Error{Kind: format.KindWrongMagic, Detail: `"XXXX"`}])
	assert.Len(t, s.Storage, 2)
	assert.Equal(t, uint64(5), s.Failed())
	assert.Equal(t, uint64(6), s.Total())

	var out strings.Builder
	require.NoError(t, s.Print(&out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		`wrong magic: "XXXX": 2`,
		`wrong magic: "YYYY": 1`,
		"datafile storage error: declared file size exceeds actual file size",
		"connection refused",
		"ok: 1",
	}, lines)
}

func TestErrorStats_Merge(t *testing.T) {
	a, b := NewErrorStats(), NewErrorStats()
	fe := &datafile.Error{Kind: datafile.KindFormat, Err: &format.Error{Kind: format.KindMalformedHeader}}
	a.Record(fe)
	a.Record(nil)
	b.Record(fe)
	b.Record(errors.New("eof"))

	a.Merge(b)
	assert.Equal(t, uint64(2), a.Format[format.Error{Kind: format.KindMalformedHeader}])
	assert.Len(t, a.Storage, 1)
	assert.Equal(t, uint64(1), a.OK)
}

func TestSummary(t *testing.T) {
	r, err := datafile.New(testutil.NewMemFile(testutil.NewBuilder(format.Version4).
		AddItem(0, 0).AddItem(2, 0).AddItem(2, 1).
		AddData(make([]byte, 2048)).AddData([]byte("x")).Bytes()))
	require.NoError(t, err)
	defer r.Close()

	info := Inspect(r)
	assert.Equal(t, format.Version4, info.Version)
	assert.Equal(t, 3, info.NumItems)
	assert.Equal(t, 2, info.NumData)
	assert.Equal(t, int64(2049), info.DataBytes)
	require.Len(t, info.ItemTypes, 2)

	s := NewSummary()
	s.Add(info)
	s.Add(info)

	var out strings.Builder
	require.NoError(t, s.Print(&out))
	assert.Equal(t, `versions:
  v4: 2
item types:
  0: 2
  2: 4
files: 2
items: 6
data: 4 (4.0 KiB)
`, out.String())
}

func TestRunner_Batch(t *testing.T) {
	fsys, paths := batch(t)

	for _, jobs := range []int{1, 4} {
		report, err := NewRunner(Options{Jobs: jobs, Open: openFs(fsys)}).Run(context.Background(), paths)
		require.NoError(t, err)

		require.Len(t, report.Results, len(paths))
		for i, res := range report.Results {
			assert.Equal(t, paths[i], res.Path)
		}

		// Without payload verification the corrupt payload goes unnoticed.
		assert.Equal(t, uint64(3), report.Errors.OK)
		assert.Equal(t, uint64(2), report.Errors.Format[format.Error{Kind: format.KindWrongMagic, Detail: `"XXXX"`}])
		assert.Len(t, report.Errors.Storage, 2)
		assert.Equal(t, uint64(3), report.Summary.Files)
		assert.Equal(t, uint64(1), report.Summary.Versions[format.Version3])
		assert.Equal(t, uint64(2), report.Summary.Versions[format.Version4])
	}
}

func TestRunner_VerifyData(t *testing.T) {
	fsys, paths := batch(t)

	report, err := NewRunner(Options{Jobs: 2, VerifyData: true, Open: openFs(fsys)}).Run(context.Background(), paths)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), report.Errors.OK)
	compression := uint64(0)
	for e, c := range report.Errors.Format {
		if e.Kind == format.KindCompression {
			compression += c
		}
	}
	assert.Equal(t, uint64(1), compression, "format tallies: %v", report.Errors.Format)

	res := report.Results[5]
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "data entry 0")
	assert.Equal(t, format.Version4, res.Info.Version)
}

func TestRunner_Print(t *testing.T) {
	fsys, paths := batch(t)

	report, err := NewRunner(Options{Open: openFs(fsys)}).Run(context.Background(), paths)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, report.Print(&out))
	text := out.String()

	assert.Contains(t, text, "maps/bad1.map: datafile format error: wrong magic")
	assert.Contains(t, text, "maps/missing.map: datafile storage error")
	assert.Contains(t, text, "ok: 3\n--------\nversions:\n")
	assert.NotContains(t, text, "maps/dm1.map:")
}

func TestRunner_RecordsResults(t *testing.T) {
	fsys, paths := batch(t)
	ctx := context.Background()

	db, err := database.NewDatabase(ctx, database.DefaultDatabaseOptions(filepath.Join(t.TempDir(), "results.db")))
	require.NoError(t, err)
	defer db.Close()

	run, err := db.StartRun(ctx)
	require.NoError(t, err)

	_, err = NewRunner(Options{Jobs: 3, Open: openFs(fsys), Run: run}).Run(ctx, paths)
	require.NoError(t, err)

	counts, err := run.StatusCounts(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []database.StatusCount{
		{Status: database.StatusFormat, ErrorKind: "wrong magic", Count: 2},
		{Status: database.StatusOK, Count: 3},
		{Status: database.StatusStorage, Count: 2},
	}, counts)

	var items int
	require.NoError(t, db.QueryRow(ctx, `SELECT num_items FROM files WHERE run_id = ? AND path = ?`, run.ID(), "maps/dm1.map").Scan(&items))
	assert.Equal(t, 3, items)
}

func TestRunner_Canceled(t *testing.T) {
	fsys, paths := batch(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(Options{Open: openFs(fsys)}).Run(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToFileResult(t *testing.T) {
	fr := toFileResult(Result{Path: "s3://maps/x.map", Err: errors.New("dial tcp: refused")})
	assert.Equal(t, database.StatusStorage, fr.Status)
	assert.Equal(t, "open", fr.ErrorKind)
	assert.Zero(t, fr.Version)

	fr = toFileResult(Result{Path: "x.map", Err: &datafile.Error{Kind: datafile.KindStorage, Err: format.ErrTruncated}})
	assert.Equal(t, database.StatusStorage, fr.Status)
	assert.Empty(t, fr.ErrorKind)
}
